// Package store defines persistence for the ledger's transactions and
// balance. Implementations include PostgreSQL (source of truth) and in-memory
// (for testing and paper runs).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/wager-engine/internal/models"
)

// Store is the persistence interface. Insert and settle are atomic with the
// matching balance adjustment, so the balance is always reconcilable against
// the transaction list.
type Store interface {
	// InsertTransaction records a new pending transaction and debits the
	// balance by its amount in the same atomic step. Returns
	// models.ErrDuplicateKey when the identity key already exists; nothing
	// is debited in that case.
	InsertTransaction(ctx context.Context, tx *models.Transaction) error

	// SettleTransaction moves a pending transaction to a terminal status,
	// crediting returnAmount to the balance for wins. Returns false without
	// error when the transaction is absent or already settled.
	SettleTransaction(ctx context.Context, identityKey string, status models.TransactionStatus, returnAmount decimal.Decimal, settledAt time.Time) (bool, error)

	// GetPendingByContest returns pending transactions for one contest.
	GetPendingByContest(ctx context.Context, contestID string) ([]*models.Transaction, error)

	// PendingContests returns the distinct contest ids with pending
	// transactions, for settlement polling.
	PendingContests(ctx context.Context) ([]string, error)

	// ListTransactions returns all transactions ordered by creation time.
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)

	// Balance returns the current bankroll balance.
	Balance(ctx context.Context) (decimal.Decimal, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close()
}
