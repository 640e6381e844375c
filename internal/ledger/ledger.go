// Package ledger is the bookkeeping layer: it records wagers exactly once per
// (contest, strategy, combination) identity, settles them against contest
// results, and derives balance and performance summaries from the transaction
// history.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/wager-engine/internal/logger"
	"github.com/yourusername/wager-engine/internal/metrics"
	"github.com/yourusername/wager-engine/internal/models"
	"github.com/yourusername/wager-engine/internal/store"
)

// RecentLimit caps the number of transactions echoed back in a summary.
const RecentLimit = 50

// Ledger coordinates transaction writes against the store. Per-identity
// locking keeps concurrent duplicate placements from racing the store's
// uniqueness check, so duplicates are reported consistently rather than
// surfacing as constraint errors.
type Ledger struct {
	store store.Store
	log   *logrus.Logger
	audit *logger.AuditLogger

	keyLocks sync.Map // identity key -> *sync.Mutex
}

// New creates a ledger over the given store.
func New(s store.Store, log *logrus.Logger) *Ledger {
	return &Ledger{
		store: s,
		log:   log,
		audit: logger.NewAuditLogger(log),
	}
}

func (l *Ledger) lockKey(key string) func() {
	v, _ := l.keyLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Record places a wager into the ledger. It returns true when a new
// transaction was created and false when an identical wager (same contest,
// strategy and combination) already exists; the duplicate case is a benign
// no-op and debits nothing.
func (l *Ledger) Record(ctx context.Context, strategyID, contestID string, amount decimal.Decimal, structure models.WagerStructure, combo models.Combination, odds float64) (bool, error) {
	if strategyID == "" || contestID == "" {
		return false, fmt.Errorf("%w: strategy and contest ids are required", models.ErrInvalidInput)
	}
	if !structure.Valid() {
		return false, fmt.Errorf("%w: unknown wager type %q", models.ErrInvalidInput, structure)
	}
	if combo.Len() != structure.RequiredPositions() {
		return false, fmt.Errorf("%w: %s wager requires %d positions, got %d",
			models.ErrInvalidInput, structure, structure.RequiredPositions(), combo.Len())
	}
	if amount.Sign() <= 0 {
		return false, fmt.Errorf("%w: amount must be positive", models.ErrInvalidInput)
	}
	if odds <= 1 {
		return false, fmt.Errorf("%w: odds must exceed 1.0", models.ErrInvalidInput)
	}

	tx := &models.Transaction{
		ID:             uuid.New(),
		ContestID:      contestID,
		StrategyID:     strategyID,
		Structure:      structure,
		Combination:    combo,
		Amount:         amount,
		OddsAtPurchase: odds,
		Status:         models.StatusPending,
		ReturnAmount:   decimal.Zero,
		CreatedAt:      time.Now().UTC(),
	}

	unlock := l.lockKey(tx.IdentityKey())
	defer unlock()

	err := l.store.InsertTransaction(ctx, tx)
	if errors.Is(err, models.ErrDuplicateKey) {
		metrics.DuplicateBetsTotal.Inc()
		l.audit.LogDuplicateBet(strategyID, contestID, combo.Key())
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("recording transaction: %w", err)
	}

	metrics.BetsRecordedTotal.Inc()
	amt, _ := amount.Float64()
	l.audit.LogBetRecorded(tx.ID.String(), strategyID, contestID, string(structure), combo.Key(), amt, odds, tx.CreatedAt)
	l.refreshGauges(ctx)
	return true, nil
}

// Settle applies contest results to every pending transaction for the
// contest. Wagers whose required positions are not all present in results are
// left pending for a later pass. Each transaction settles at most once;
// transactions already terminal are skipped. Returns the number settled in
// this pass.
func (l *Ledger) Settle(ctx context.Context, contestID string, results models.Results) (int, error) {
	if contestID == "" {
		return 0, fmt.Errorf("%w: contest id is required", models.ErrInvalidInput)
	}

	pending, err := l.store.GetPendingByContest(ctx, contestID)
	if err != nil {
		return 0, fmt.Errorf("loading pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	settled := 0
	skipped := 0
	for _, tx := range pending {
		won, decided := tx.Outcome(results)
		if !decided {
			skipped++
			continue
		}

		status := models.StatusLose
		returnAmount := decimal.Zero
		if won {
			status = models.StatusWin
			returnAmount = tx.Payout()
		}

		unlock := l.lockKey(tx.IdentityKey())
		ok, err := l.store.SettleTransaction(ctx, tx.IdentityKey(), status, returnAmount, time.Now().UTC())
		unlock()
		if err != nil {
			return settled, fmt.Errorf("settling %s: %w", tx.IdentityKey(), err)
		}
		if !ok {
			// Lost the race to another settlement pass.
			continue
		}

		settled++
		metrics.SettlementsTotal.WithLabelValues(string(status)).Inc()
		amt, _ := tx.Amount.Float64()
		ret, _ := returnAmount.Float64()
		l.audit.LogSettlement(contestID, tx.Combination.Key(), string(status), amt, ret)
	}

	if skipped > 0 {
		l.log.WithFields(logrus.Fields{
			"contest_id": contestID,
			"skipped":    skipped,
		}).Debug("Partial results, leaving transactions pending")
	}
	l.refreshGauges(ctx)
	return settled, nil
}

// PendingContests returns the contest ids that still have pending
// transactions, for settlement polling.
func (l *Ledger) PendingContests(ctx context.Context) ([]string, error) {
	return l.store.PendingContests(ctx)
}

// Summary is a snapshot of ledger state and lifetime performance.
type Summary struct {
	Balance     decimal.Decimal       `json:"balance"`
	TotalBets   int                   `json:"total_bets"`
	PendingBets int                   `json:"pending_bets"`
	Wins        int                   `json:"wins"`
	WinRate     float64               `json:"win_rate_pct"`
	Invested    decimal.Decimal       `json:"invested"`
	Returned    decimal.Decimal       `json:"returned"`
	ROI         float64               `json:"roi_pct"`
	Recent      []*models.Transaction `json:"recent"`
}

// Summarize folds the transaction history into a Summary. Win rate and ROI
// are computed over settled transactions only; Recent holds the newest
// transactions up to RecentLimit, newest first.
func (l *Ledger) Summarize(ctx context.Context) (*Summary, error) {
	txs, err := l.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	balance, err := l.store.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading balance: %w", err)
	}

	s := &Summary{
		Balance:  balance,
		Invested: decimal.Zero,
		Returned: decimal.Zero,
	}
	settledCount := 0
	settledStake := decimal.Zero
	for _, tx := range txs {
		s.TotalBets++
		s.Invested = s.Invested.Add(tx.Amount)
		switch tx.Status {
		case models.StatusPending:
			s.PendingBets++
		case models.StatusWin:
			settledCount++
			settledStake = settledStake.Add(tx.Amount)
			s.Wins++
			s.Returned = s.Returned.Add(tx.ReturnAmount)
		case models.StatusLose:
			settledCount++
			settledStake = settledStake.Add(tx.Amount)
		}
	}
	if settledCount > 0 {
		s.WinRate = float64(s.Wins) / float64(settledCount) * 100
	}
	if settledStake.Sign() > 0 {
		roi, _ := s.Returned.Div(settledStake).Float64()
		s.ROI = roi * 100
	}

	// Newest first, capped.
	n := len(txs)
	limit := RecentLimit
	if n < limit {
		limit = n
	}
	s.Recent = make([]*models.Transaction, 0, limit)
	for i := n - 1; i >= 0 && len(s.Recent) < limit; i-- {
		s.Recent = append(s.Recent, txs[i])
	}
	return s, nil
}

func (l *Ledger) refreshGauges(ctx context.Context) {
	if balance, err := l.store.Balance(ctx); err == nil {
		f, _ := balance.Float64()
		metrics.CurrentBalance.Set(f)
	}
	pendingTotal := 0
	contests, err := l.store.PendingContests(ctx)
	if err != nil {
		return
	}
	for _, c := range contests {
		txs, err := l.store.GetPendingByContest(ctx, c)
		if err != nil {
			return
		}
		pendingTotal += len(txs)
	}
	metrics.PendingTransactions.Set(float64(pendingTotal))
}
