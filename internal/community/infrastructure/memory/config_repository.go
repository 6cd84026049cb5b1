package memory

import (
	"context"
	"sync"

	community "energy-square/internal/community/domain"
)

// ConfigRepository keeps the config record in memory.
type ConfigRepository struct {
	mu  sync.RWMutex
	cfg *community.Config
}

// NewConfigRepository constructs an empty repository.
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

// Get returns the stored config.
func (r *ConfigRepository) Get(ctx context.Context) (community.Config, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return community.Config{}, community.ErrNotFound
	}
	return *r.cfg, nil
}

// Save writes the config when expectedVersion matches.
func (r *ConfigRepository) Save(ctx context.Context, cfg community.Config, expectedVersion int) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	current := 0
	if r.cfg != nil {
		current = r.cfg.Version
	}
	if current != expectedVersion {
		return community.ErrVersionConflict
	}
	stored := cfg
	r.cfg = &stored
	return nil
}
