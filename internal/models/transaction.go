package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionStatus represents the settlement state of a recorded wager.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusWin     TransactionStatus = "win"
	StatusLose    TransactionStatus = "lose"
)

// Terminal reports whether the status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == StatusWin || s == StatusLose
}

// Results maps a finishing position (1..3) to the entrant id that took it.
// A partial map is valid; settlement acts only on wagers whose required
// positions are all present.
type Results map[int]string

// HasPositions reports whether positions 1..n are all known.
func (r Results) HasPositions(n int) bool {
	for pos := 1; pos <= n; pos++ {
		if _, ok := r[pos]; !ok {
			return false
		}
	}
	return true
}

// Transaction is one ledger entry for a placed wager. Identity is the
// (contest, strategy, combination) triple; at most one transaction exists per
// identity key and its status transitions at most once.
type Transaction struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	ContestID      string            `db:"contest_id" json:"contest_id" validate:"required"`
	StrategyID     string            `db:"strategy_id" json:"strategy_id" validate:"required"`
	Structure      WagerStructure    `db:"wager_type" json:"wager_type" validate:"required"`
	Combination    Combination       `db:"-" json:"combination"`
	Amount         decimal.Decimal   `db:"amount" json:"amount"`
	OddsAtPurchase float64           `db:"odds_at_purchase" json:"odds_at_purchase" validate:"gt=1"`
	Status         TransactionStatus `db:"status" json:"status"`
	ReturnAmount   decimal.Decimal   `db:"return_amount" json:"return_amount"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	SettledAt      *time.Time        `db:"settled_at" json:"settled_at,omitempty"`
}

// IdentityKey returns the ledger identity key for the transaction.
func (t *Transaction) IdentityKey() string {
	return IdentityKey(t.ContestID, t.StrategyID, t.Combination)
}

// IdentityKey builds the canonical (contest, strategy, combination) key.
func IdentityKey(contestID, strategyID string, combo Combination) string {
	return fmt.Sprintf("%s|%s|%s", contestID, strategyID, combo.Key())
}

// Outcome decides the transaction against a (possibly partial) finishing
// order. decided is false while any required position is still unknown;
// callers must leave the transaction pending in that case.
func (t *Transaction) Outcome(results Results) (won bool, decided bool) {
	required := t.Structure.RequiredPositions()
	if !results.HasPositions(required) {
		return false, false
	}
	for pos := 1; pos <= required; pos++ {
		if results[pos] != t.Combination.At(pos) {
			return false, true
		}
	}
	return true, true
}

// Payout returns amount × odds_at_purchase, the amount credited on a win.
func (t *Transaction) Payout() decimal.Decimal {
	return t.Amount.Mul(decimal.NewFromFloat(t.OddsAtPurchase)).RoundBank(0)
}

// IsSettled checks if the transaction reached a terminal state.
func (t *Transaction) IsSettled() bool {
	return t.Status.Terminal()
}
