package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	dashboard "energy-square/internal/dashboard/domain"
)

const defaultTransactionTable = "marketplace_transactions"

// TransactionRepository is a Postgres repository for marketplace trades.
type TransactionRepository struct {
	db    *sql.DB
	table string
}

// TransactionOption configures the repository.
type TransactionOption func(*TransactionRepository)

// WithTransactionTable overrides the default table name.
func WithTransactionTable(table string) TransactionOption {
	return func(repo *TransactionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewTransactionRepository constructs a repository.
func NewTransactionRepository(db *sql.DB, opts ...TransactionOption) *TransactionRepository {
	repo := &TransactionRepository{db: db, table: defaultTransactionTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the table and its user index when missing.
func (r *TransactionRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("transaction repo: nil db")
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	amount_kwh DOUBLE PRECISION NOT NULL,
	price_per_kwh DOUBLE PRECISION NOT NULL,
	total_eur DOUBLE PRECISION NOT NULL,
	counterparty_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
)`, r.table)); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %[1]s_user_idx ON %[1]s (user_id, created_at DESC)", r.table))
	return err
}

// Add inserts a trade.
func (r *TransactionRepository) Add(ctx context.Context, tx dashboard.Transaction) error {
	if r == nil || r.db == nil {
		return errors.New("transaction repo: nil db")
	}
	if tx.ID == "" || tx.UserID == "" {
		return errors.New("transaction repo: missing fields")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (id, user_id, type, amount_kwh, price_per_kwh, total_eur, counterparty_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.table),
		tx.ID, tx.UserID, tx.Type, tx.AmountKWh, tx.PricePerKWh, tx.TotalEUR, tx.CounterpartyID, tx.Timestamp.UTC())
	return err
}

// ListByUser returns the user's trades newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]dashboard.Transaction, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("transaction repo: nil db")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, user_id, type, amount_kwh, price_per_kwh, total_eur, counterparty_id, created_at
FROM %s
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`, r.table), userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]dashboard.Transaction, 0)
	for rows.Next() {
		var tx dashboard.Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.AmountKWh, &tx.PricePerKWh, &tx.TotalEUR, &tx.CounterpartyID, &tx.Timestamp); err != nil {
			return nil, err
		}
		tx.Timestamp = tx.Timestamp.UTC()
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
