package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	dashboard "energy-square/internal/dashboard/domain"
)

// ProgramRepository keeps demand-response programs in memory.
type ProgramRepository struct {
	mu    sync.RWMutex
	items []dashboard.Program
}

// NewProgramRepository constructs an empty repository.
func NewProgramRepository() *ProgramRepository {
	return &ProgramRepository{}
}

// List returns the programs in creation order.
func (r *ProgramRepository) List(ctx context.Context) ([]dashboard.Program, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]dashboard.Program{}, r.items...), nil
}

// Create stores a program. Ids are unique.
func (r *ProgramRepository) Create(ctx context.Context, program dashboard.Program) error {
	_ = ctx
	if program.ID == "" {
		return errors.New("program repo: empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.ID == program.ID {
			return errors.New("program repo: duplicate id")
		}
	}
	r.items = append(r.items, program)
	return nil
}

// TransactionRepository keeps marketplace trades in memory.
type TransactionRepository struct {
	mu    sync.RWMutex
	items []dashboard.Transaction
}

// NewTransactionRepository constructs an empty repository.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

// Add records a trade.
func (r *TransactionRepository) Add(ctx context.Context, tx dashboard.Transaction) error {
	_ = ctx
	if tx.ID == "" || tx.UserID == "" {
		return errors.New("transaction repo: missing fields")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, tx)
	return nil
}

// ListByUser returns the user's trades newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit int) ([]dashboard.Transaction, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]dashboard.Transaction, 0)
	for _, tx := range r.items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
