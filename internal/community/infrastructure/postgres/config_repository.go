package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	community "energy-square/internal/community/domain"
)

const (
	defaultConfigTable = "community_config"
	singletonID        = 1
)

// ConfigRepository stores the singleton config document as JSONB.
type ConfigRepository struct {
	db    DBTX
	table string
}

// ConfigOption configures the repository.
type ConfigOption func(*ConfigRepository)

// WithConfigTable overrides the default table name.
func WithConfigTable(table string) ConfigOption {
	return func(repo *ConfigRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewConfigRepository constructs a repository.
func NewConfigRepository(db DBTX, opts ...ConfigOption) *ConfigRepository {
	repo := &ConfigRepository{db: db, table: defaultConfigTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the table when missing.
func (r *ConfigRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("config repo: nil db")
	}
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id SMALLINT PRIMARY KEY,
	version INTEGER NOT NULL,
	document JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`, r.table)
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Get loads the stored config.
func (r *ConfigRepository) Get(ctx context.Context) (community.Config, error) {
	if r == nil || r.db == nil {
		return community.Config{}, errors.New("config repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT document, version, created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var (
		document             []byte
		version              int
		createdAt, updatedAt sql.NullTime
		cfg                  community.Config
	)
	if err := r.db.QueryRowContext(ctx, query, singletonID).Scan(&document, &version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return community.Config{}, community.ErrNotFound
		}
		return community.Config{}, err
	}
	if err := json.Unmarshal(document, &cfg); err != nil {
		return community.Config{}, fmt.Errorf("config repo: decode document: %w", err)
	}
	cfg.Version = version
	if createdAt.Valid {
		cfg.CreatedAt = createdAt.Time.UTC()
	}
	if updatedAt.Valid {
		cfg.UpdatedAt = updatedAt.Time.UTC()
	}
	return cfg, nil
}

// Save inserts or updates the singleton row using optimistic versioning.
func (r *ConfigRepository) Save(ctx context.Context, cfg community.Config, expectedVersion int) error {
	if r == nil || r.db == nil {
		return errors.New("config repo: nil db")
	}
	document, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	var result sql.Result
	if expectedVersion == 0 {
		query := fmt.Sprintf(`
INSERT INTO %s (id, version, document, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`, r.table)
		result, err = r.db.ExecContext(ctx, query, singletonID, cfg.Version, document, cfg.CreatedAt.UTC(), cfg.UpdatedAt.UTC())
	} else {
		query := fmt.Sprintf(`
UPDATE %s
SET version = $2, document = $3, created_at = $4, updated_at = $5
WHERE id = $1 AND version = $6`, r.table)
		result, err = r.db.ExecContext(ctx, query, singletonID, cfg.Version, document, cfg.CreatedAt.UTC(), cfg.UpdatedAt.UTC(), expectedVersion)
	}
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return community.ErrVersionConflict
	}
	return nil
}
