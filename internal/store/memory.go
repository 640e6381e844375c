package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/wager-engine/internal/models"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// paper runs. Not suitable for production (no persistence).
type MemoryStore struct {
	mu      sync.RWMutex
	txs     map[string]*models.Transaction
	order   []string
	balance decimal.Decimal
}

// NewMemoryStore creates an in-memory store with an opening balance.
func NewMemoryStore(openingBalance decimal.Decimal) *MemoryStore {
	return &MemoryStore{
		txs:     make(map[string]*models.Transaction),
		balance: openingBalance,
	}
}

func (s *MemoryStore) InsertTransaction(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tx.IdentityKey()
	if _, exists := s.txs[key]; exists {
		return models.ErrDuplicateKey
	}

	// Store a copy to avoid external mutation.
	stored := *tx
	s.txs[key] = &stored
	s.order = append(s.order, key)
	s.balance = s.balance.Sub(tx.Amount)
	return nil
}

func (s *MemoryStore) SettleTransaction(_ context.Context, identityKey string, status models.TransactionStatus, returnAmount decimal.Decimal, settledAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[identityKey]
	if !ok || tx.Status != models.StatusPending {
		return false, nil
	}

	tx.Status = status
	tx.ReturnAmount = returnAmount
	at := settledAt
	tx.SettledAt = &at
	if status == models.StatusWin {
		s.balance = s.balance.Add(returnAmount)
	}
	return true, nil
}

func (s *MemoryStore) GetPendingByContest(_ context.Context, contestID string) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Transaction
	for _, key := range s.order {
		tx := s.txs[key]
		if tx.ContestID == contestID && tx.Status == models.StatusPending {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) PendingContests(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var contests []string
	for _, tx := range s.txs {
		if tx.Status != models.StatusPending {
			continue
		}
		if _, dup := seen[tx.ContestID]; dup {
			continue
		}
		seen[tx.ContestID] = struct{}{}
		contests = append(contests, tx.ContestID)
	}
	sort.Strings(contests)
	return contests, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Transaction, 0, len(s.order))
	for _, key := range s.order {
		copied := *s.txs[key]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) Balance(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() {}
