package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"energy-square/internal/community/application/events"
	community "energy-square/internal/community/domain"
	"energy-square/internal/observability/metrics"
)

// DefaultCacheTTL bounds how long a read may serve a cached config.
const DefaultCacheTTL = 30 * time.Second

// Repository stores the singleton config record.
type Repository interface {
	// Get returns community.ErrNotFound when nothing is stored.
	Get(ctx context.Context) (community.Config, error)
	// Save writes cfg if the stored version equals expectedVersion; 0
	// means no record exists yet.
	Save(ctx context.Context, cfg community.Config, expectedVersion int) error
}

// EventPublisher publishes config events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type cacheEntry struct {
	cfg      community.Config
	loadedAt time.Time
}

// Provider is a read-through cache over the config repository. Writes go
// through the repository and refresh the cache; Invalidate drops it.
type Provider struct {
	repo      Repository
	ttl       time.Duration
	publisher EventPublisher
	logger    *log.Logger
	now       func() time.Time

	mu sync.Mutex

	// cacheMu guards cache and gen. gen changes on every store or
	// invalidation so a slow read-through fill cannot overwrite newer state.
	cacheMu sync.Mutex
	cache   *cacheEntry
	gen     uint64
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithCacheTTL overrides DefaultCacheTTL. A non-positive ttl disables caching.
func WithCacheTTL(ttl time.Duration) ProviderOption {
	return func(p *Provider) {
		p.ttl = ttl
	}
}

// WithPublisher publishes ConfigUpdated after each write.
func WithPublisher(publisher EventPublisher) ProviderOption {
	return func(p *Provider) {
		p.publisher = publisher
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider constructs a provider.
func NewProvider(repo Repository, logger *log.Logger, opts ...ProviderOption) (*Provider, error) {
	if repo == nil {
		return nil, errors.New("config provider: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	p := &Provider{
		repo:   repo,
		ttl:    DefaultCacheTTL,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Get returns the current config, loading it when the cache is empty or
// expired. A missing record is created from defaults.
func (p *Provider) Get(ctx context.Context) (community.Config, error) {
	if p == nil {
		return community.Config{}, errors.New("config provider: nil")
	}
	p.cacheMu.Lock()
	entry, gen := p.cache, p.gen
	p.cacheMu.Unlock()
	if entry != nil && p.ttl > 0 && p.now().Sub(entry.loadedAt) < p.ttl {
		metrics.IncConfigCache("hit")
		return entry.cfg, nil
	}
	metrics.IncConfigCache("miss")
	cfg, err := p.load(ctx)
	if err != nil {
		return community.Config{}, err
	}
	p.fill(gen, cfg)
	return cfg, nil
}

// ScalingFactors returns the factors the metric engine reads per request.
func (p *Provider) ScalingFactors(ctx context.Context) (community.ScalingFactors, error) {
	cfg, err := p.Get(ctx)
	if err != nil {
		return community.ScalingFactors{}, err
	}
	return cfg.Scaling(), nil
}

// Metrics returns the community summary.
func (p *Provider) Metrics(ctx context.Context) (community.Metrics, error) {
	cfg, err := p.Get(ctx)
	if err != nil {
		return community.Metrics{}, err
	}
	return cfg.Metrics(), nil
}

// Report validates the current config.
func (p *Provider) Report(ctx context.Context) (community.ValidationReport, error) {
	cfg, err := p.Get(ctx)
	if err != nil {
		return community.ValidationReport{}, err
	}
	return cfg.Report(), nil
}

// Update applies a partial update. A rejected update leaves the stored
// config unchanged.
func (p *Provider) Update(ctx context.Context, updates map[string]json.RawMessage) (community.Config, error) {
	if p == nil {
		return community.Config{}, errors.New("config provider: nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.load(ctx)
	if err != nil {
		metrics.IncConfigUpdate("update", metrics.ResultError)
		return community.Config{}, err
	}
	next, err := current.Apply(updates, p.now())
	if err != nil {
		metrics.IncConfigUpdate("update", "rejected")
		return community.Config{}, err
	}
	if err := p.repo.Save(ctx, next, current.Version); err != nil {
		metrics.IncConfigUpdate("update", metrics.ResultError)
		p.logger.Printf("config provider: save error: %v", err)
		return community.Config{}, err
	}
	p.store(next)
	metrics.IncConfigUpdate("update", metrics.ResultSuccess)

	fields := make([]string, 0, len(updates))
	for key := range updates {
		fields = append(fields, key)
	}
	sort.Strings(fields)
	p.logger.Printf("config provider: updated version=%d fields=%v", next.Version, fields)
	p.publish(ctx, events.ConfigUpdated{Version: next.Version, Fields: fields, OccurredAt: next.UpdatedAt})
	return next, nil
}

// Reset restores defaults. The version keeps increasing.
func (p *Provider) Reset(ctx context.Context) (community.Config, error) {
	if p == nil {
		return community.Config{}, errors.New("config provider: nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	current, err := p.load(ctx)
	if err != nil {
		metrics.IncConfigUpdate("reset", metrics.ResultError)
		return community.Config{}, err
	}
	next := community.Defaults(p.now())
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	if err := p.repo.Save(ctx, next, current.Version); err != nil {
		metrics.IncConfigUpdate("reset", metrics.ResultError)
		return community.Config{}, err
	}
	p.store(next)
	metrics.IncConfigUpdate("reset", metrics.ResultSuccess)
	p.logger.Printf("config provider: reset to defaults version=%d", next.Version)
	p.publish(ctx, events.ConfigUpdated{Version: next.Version, Reset: true, OccurredAt: next.UpdatedAt})
	return next, nil
}

// Invalidate drops the cached config so the next read hits the repository.
func (p *Provider) Invalidate() {
	if p == nil {
		return
	}
	p.cacheMu.Lock()
	p.cache = nil
	p.gen++
	p.cacheMu.Unlock()
	metrics.IncConfigCache("invalidate")
}

func (p *Provider) load(ctx context.Context) (community.Config, error) {
	cfg, err := p.repo.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, community.ErrNotFound) {
		return community.Config{}, err
	}
	cfg = community.Defaults(p.now())
	if err := p.repo.Save(ctx, cfg, 0); err != nil {
		if errors.Is(err, community.ErrVersionConflict) {
			return p.repo.Get(ctx)
		}
		return community.Config{}, err
	}
	p.logger.Printf("config provider: no config stored, created defaults")
	return cfg, nil
}

func (p *Provider) store(cfg community.Config) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache = &cacheEntry{cfg: cfg, loadedAt: p.now()}
	p.gen++
}

// fill caches a read-through result only when nothing was stored or
// invalidated since gen was observed.
func (p *Provider) fill(gen uint64, cfg community.Config) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	if p.gen != gen {
		return
	}
	p.cache = &cacheEntry{cfg: cfg, loadedAt: p.now()}
	p.gen++
}

func (p *Provider) publish(ctx context.Context, event any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Printf("config provider: publish error: %v", err)
	}
}
