package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yourusername/wager-engine/internal/models"
)

// PostgresStore implements Store over a pgx connection pool. Identity-key
// uniqueness is enforced by the database; insert and settle run inside a
// transaction together with the matching balance adjustment.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, verifies connectivity, runs migrations and seeds
// the opening balance if no bankroll row exists yet.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int, openingBalance decimal.Decimal) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(maxConns)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx, openingBalance); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context, openingBalance decimal.Decimal) error {
	schema := `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			identity_key TEXT NOT NULL UNIQUE,
			contest_id TEXT NOT NULL,
			strategy_id TEXT NOT NULL,
			wager_type TEXT NOT NULL,
			combination TEXT NOT NULL,
			amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
			odds_at_purchase DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			return_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_contest_status
			ON transactions (contest_id, status);
		CREATE TABLE IF NOT EXISTS bankroll (
			id INT PRIMARY KEY CHECK (id = 1),
			balance NUMERIC(14,2) NOT NULL
		);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bankroll (id, balance) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`,
		openingBalance)
	if err != nil {
		return fmt.Errorf("failed to seed opening balance: %w", err)
	}
	return nil
}

// InsertTransaction records a pending transaction. The unique index on
// identity_key makes the insert an atomic compare-and-insert; duplicates
// leave both the table and the balance untouched.
func (s *PostgresStore) InsertTransaction(ctx context.Context, transaction *models.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO transactions
			(id, identity_key, contest_id, strategy_id, wager_type, combination,
			 amount, odds_at_purchase, status, return_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (identity_key) DO NOTHING
	`,
		transaction.ID, transaction.IdentityKey(), transaction.ContestID, transaction.StrategyID,
		string(transaction.Structure), transaction.Combination.Key(),
		transaction.Amount, transaction.OddsAtPurchase, string(transaction.Status),
		transaction.ReturnAmount, transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDuplicateKey
	}

	if _, err := tx.Exec(ctx,
		`UPDATE bankroll SET balance = balance - $1 WHERE id = 1`,
		transaction.Amount); err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SettleTransaction settles a pending transaction. The status guard in the
// UPDATE makes repeated settlement a no-op.
func (s *PostgresStore) SettleTransaction(ctx context.Context, identityKey string, status models.TransactionStatus, returnAmount decimal.Decimal, settledAt time.Time) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $2, return_amount = $3, settled_at = $4
		WHERE identity_key = $1 AND status = 'pending'
	`, identityKey, string(status), returnAmount, settledAt)
	if err != nil {
		return false, fmt.Errorf("failed to settle transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if status == models.StatusWin {
		if _, err := tx.Exec(ctx,
			`UPDATE bankroll SET balance = balance + $1 WHERE id = 1`,
			returnAmount); err != nil {
			return false, fmt.Errorf("failed to credit balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return true, nil
}

// GetPendingByContest retrieves pending transactions for a contest.
func (s *PostgresStore) GetPendingByContest(ctx context.Context, contestID string) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectColumns+`
		WHERE contest_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// PendingContests returns contest ids with at least one pending transaction.
func (s *PostgresStore) PendingContests(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT contest_id FROM transactions WHERE status = 'pending' ORDER BY contest_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending contests: %w", err)
	}
	defer rows.Close()

	var contests []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contest id: %w", err)
		}
		contests = append(contests, id)
	}
	return contests, rows.Err()
}

// ListTransactions returns all transactions ordered by creation time.
func (s *PostgresStore) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx, selectColumns+` ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

// Balance returns the current bankroll balance.
func (s *PostgresStore) Balance(ctx context.Context) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.pool.QueryRow(ctx, `SELECT balance FROM bankroll WHERE id = 1`).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const selectColumns = `
	SELECT id, contest_id, strategy_id, wager_type, combination, amount,
	       odds_at_purchase, status, return_amount, created_at, settled_at
	FROM transactions
`

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTransactions(rows pgxRows) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for rows.Next() {
		var (
			tx        models.Transaction
			structure string
			comboKey  string
			status    string
		)
		err := rows.Scan(
			&tx.ID, &tx.ContestID, &tx.StrategyID, &structure, &comboKey, &tx.Amount,
			&tx.OddsAtPurchase, &status, &tx.ReturnAmount, &tx.CreatedAt, &tx.SettledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		combo, err := models.ParseCombination(comboKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored combination %q: %w", comboKey, err)
		}
		tx.Structure = models.WagerStructure(structure)
		tx.Combination = combo
		tx.Status = models.TransactionStatus(status)
		out = append(out, &tx)
	}
	return out, rows.Err()
}
