package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	notices "energy-square/internal/notices/domain"
)

// NoticeRepository keeps notices in memory.
type NoticeRepository struct {
	mu    sync.RWMutex
	items []notices.Notice
}

// NewNoticeRepository constructs an empty repository.
func NewNoticeRepository() *NoticeRepository {
	return &NoticeRepository{}
}

// Create stores a notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *notices.Notice) error {
	_ = ctx
	if notice == nil {
		return errors.New("notice repo: nil notice")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *notice)
	return nil
}

// List returns matching notices newest first.
func (r *NoticeRepository) List(ctx context.Context, query notices.Query) ([]notices.Notice, error) {
	_ = ctx
	r.mu.RLock()
	out := make([]notices.Notice, 0, len(r.items))
	for _, n := range r.items {
		if n.VisibleTo(query.Scope, query.UserID) {
			out = append(out, n)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if query.Limit > 0 && len(out) > query.Limit {
		out = out[:query.Limit]
	}
	return out, nil
}
