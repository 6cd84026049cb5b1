package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	dashboard "energy-square/internal/dashboard/domain"
)

const defaultProgramTable = "dr_programs"

// ProgramRepository is a Postgres repository for demand-response programs.
type ProgramRepository struct {
	db    *sql.DB
	table string
}

// ProgramOption configures the repository.
type ProgramOption func(*ProgramRepository)

// WithProgramTable overrides the default table name.
func WithProgramTable(table string) ProgramOption {
	return func(repo *ProgramRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewProgramRepository constructs a repository.
func NewProgramRepository(db *sql.DB, opts ...ProgramOption) *ProgramRepository {
	repo := &ProgramRepository{db: db, table: defaultProgramTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// EnsureSchema creates the table when missing.
func (r *ProgramRepository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("program repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	reason TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	end_time TIMESTAMPTZ NOT NULL,
	target_reduction_kw DOUBLE PRECISION NOT NULL,
	reward_per_kwh DOUBLE PRECISION NOT NULL,
	status TEXT NOT NULL
)`, r.table))
	return err
}

// Create inserts a program.
func (r *ProgramRepository) Create(ctx context.Context, program dashboard.Program) error {
	if r == nil || r.db == nil {
		return errors.New("program repo: nil db")
	}
	if program.ID == "" {
		return errors.New("program repo: empty id")
	}
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (id, title, reason, start_time, end_time, target_reduction_kw, reward_per_kwh, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.table),
		program.ID,
		program.Title,
		program.Reason,
		program.StartTime.UTC(),
		program.EndTime.UTC(),
		program.TargetReductionKW,
		program.RewardPerKWh,
		program.Status,
	)
	return err
}

// List returns every program ordered by start time.
func (r *ProgramRepository) List(ctx context.Context) ([]dashboard.Program, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("program repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id, title, reason, start_time, end_time, target_reduction_kw, reward_per_kwh, status
FROM %s
ORDER BY start_time ASC`, r.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]dashboard.Program, 0)
	for rows.Next() {
		var p dashboard.Program
		if err := rows.Scan(&p.ID, &p.Title, &p.Reason, &p.StartTime, &p.EndTime, &p.TargetReductionKW, &p.RewardPerKWh, &p.Status); err != nil {
			return nil, err
		}
		p.StartTime = p.StartTime.UTC()
		p.EndTime = p.EndTime.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
