package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	notices "energy-square/internal/notices/domain"
)

const defaultNoticesTable = "notices"

// NoticeRepository is a Postgres repository for notices.
type NoticeRepository struct {
	db    *sql.DB
	table string
}

// NoticeOption configures the repository.
type NoticeOption func(*NoticeRepository)

// WithNoticesTable overrides the default table name.
func WithNoticesTable(table string) NoticeOption {
	return func(repo *NoticeRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewNoticeRepository constructs a repository.
func NewNoticeRepository(db *sql.DB, opts ...NoticeOption) *NoticeRepository {
	repo := &NoticeRepository{db: db, table: defaultNoticesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the table when missing.
func (r *NoticeRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("notice repo: nil db")
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	user_id TEXT NULL,
	type TEXT NOT NULL,
	severity TEXT NOT NULL,
	message TEXT NOT NULL,
	affected_users INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
)`, r.table)); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %[1]s_created_at_idx ON %[1]s (created_at DESC)", r.table))
	return err
}

// Create inserts a notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *notices.Notice) error {
	if r == nil || r.db == nil {
		return errors.New("notice repo: nil db")
	}
	if notice == nil {
		return errors.New("notice repo: nil notice")
	}
	if notice.ID == "" || notice.Message == "" {
		return errors.New("notice repo: missing fields")
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (id, user_id, type, severity, message, affected_users, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, r.table),
		notice.ID,
		nullableString(notice.UserID),
		notice.Type,
		notice.Severity,
		notice.Message,
		notice.AffectedUsers,
		notice.CreatedAt.UTC(),
	)
	return err
}

// List returns matching notices newest first.
func (r *NoticeRepository) List(ctx context.Context, query notices.Query) ([]notices.Notice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("notice repo: nil db")
	}
	stmt := fmt.Sprintf(`
SELECT id, user_id, type, severity, message, affected_users, created_at
FROM %s`, r.table)
	var args []any
	switch query.Scope {
	case notices.ScopeAll:
	case notices.ScopeCommunity:
		stmt += " WHERE user_id IS NULL"
	case notices.ScopeUser:
		stmt += " WHERE user_id IS NULL OR user_id = $1"
		args = append(args, query.UserID)
	default:
		return nil, notices.ErrInvalidScope
	}
	stmt += " ORDER BY created_at DESC"
	if query.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", query.Limit)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notices.Notice
	for rows.Next() {
		var notice notices.Notice
		var userID sql.NullString
		if err := rows.Scan(
			&notice.ID,
			&userID,
			&notice.Type,
			&notice.Severity,
			&notice.Message,
			&notice.AffectedUsers,
			&notice.CreatedAt,
		); err != nil {
			return nil, err
		}
		if userID.Valid {
			notice.UserID = userID.String
		}
		notice.CreatedAt = notice.CreatedAt.UTC()
		result = append(result, notice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
