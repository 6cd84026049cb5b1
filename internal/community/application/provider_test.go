package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"energy-square/internal/community/application/events"
	community "energy-square/internal/community/domain"
	"energy-square/internal/community/infrastructure/memory"
)

type countingRepo struct {
	*memory.ConfigRepository
	mu    sync.Mutex
	reads int
}

func (r *countingRepo) Get(ctx context.Context) (community.Config, error) {
	r.mu.Lock()
	r.reads++
	r.mu.Unlock()
	return r.ConfigRepository.Get(ctx)
}

type capturePublisher struct {
	events []any
}

func (p *capturePublisher) Publish(_ context.Context, event any) error {
	p.events = append(p.events, event)
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestProvider(t *testing.T, opts ...ProviderOption) (*Provider, *countingRepo, *fakeClock) {
	t.Helper()
	repo := &countingRepo{ConfigRepository: memory.NewConfigRepository()}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	opts = append([]ProviderOption{WithClock(clock.Now)}, opts...)
	provider, err := NewProvider(repo, log.New(io.Discard, "", 0), opts...)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return provider, repo, clock
}

func TestProviderCreatesDefaults(t *testing.T) {
	provider, repo, _ := newTestProvider(t)
	cfg, err := provider.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.TotalHouseholds != 500 || cfg.Version != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	stored, err := repo.ConfigRepository.Get(context.Background())
	if err != nil || stored.Version != 1 {
		t.Fatalf("expected defaults to be persisted, got %v %+v", err, stored)
	}
}

func TestProviderCachesUntilTTLOrInvalidate(t *testing.T) {
	provider, repo, clock := newTestProvider(t, WithCacheTTL(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := provider.ScalingFactors(ctx); err != nil {
			t.Fatalf("scaling: %v", err)
		}
	}
	if repo.reads != 1 {
		t.Fatalf("expected 1 repository read, got %d", repo.reads)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if _, err := provider.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if repo.reads != 2 {
		t.Fatalf("expected reload after ttl, got %d reads", repo.reads)
	}

	provider.Invalidate()
	if _, err := provider.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if repo.reads != 3 {
		t.Fatalf("expected reload after invalidate, got %d reads", repo.reads)
	}
}

func TestProviderUpdateVisibleImmediately(t *testing.T) {
	publisher := &capturePublisher{}
	provider, _, _ := newTestProvider(t, WithCacheTTL(time.Hour), WithPublisher(publisher))
	ctx := context.Background()

	if _, err := provider.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	updated, err := provider.Update(ctx, map[string]json.RawMessage{
		"regional_to_community_scaling": json.RawMessage(`0.002`),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version 2, got %d", updated.Version)
	}
	factors, err := provider.ScalingFactors(ctx)
	if err != nil {
		t.Fatalf("scaling: %v", err)
	}
	if factors.RegionalToCommunityScaling != 0.002 {
		t.Fatalf("expected updated factor, got %v", factors.RegionalToCommunityScaling)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	event, ok := publisher.events[0].(events.ConfigUpdated)
	if !ok || event.Version != 2 || len(event.Fields) != 1 {
		t.Fatalf("unexpected event %+v", publisher.events[0])
	}
}

func TestProviderRejectedUpdateKeepsConfig(t *testing.T) {
	provider, _, _ := newTestProvider(t)
	ctx := context.Background()

	_, err := provider.Update(ctx, map[string]json.RawMessage{
		"demand_scaling_factor": json.RawMessage(`3`),
	})
	var fieldErr *community.FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "demand_scaling_factor" {
		t.Fatalf("expected field error naming demand_scaling_factor, got %v", err)
	}
	cfg, err := provider.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.DemandScalingFactor != 0.25 || cfg.Version != 1 {
		t.Fatalf("expected unchanged config, got %+v", cfg)
	}
}

func TestProviderReset(t *testing.T) {
	provider, _, _ := newTestProvider(t)
	ctx := context.Background()
	if _, err := provider.Update(ctx, map[string]json.RawMessage{"total_households": json.RawMessage(`900`)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	cfg, err := provider.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if cfg.TotalHouseholds != 500 || cfg.Version != 3 {
		t.Fatalf("unexpected reset config %+v", cfg)
	}
}

// gatedRepo holds the first armed Get after it has read the record until
// release is closed.
type gatedRepo struct {
	*memory.ConfigRepository
	mu      sync.Mutex
	armed   bool
	read    chan struct{}
	release chan struct{}
}

func (r *gatedRepo) Get(ctx context.Context) (community.Config, error) {
	cfg, err := r.ConfigRepository.Get(ctx)
	r.mu.Lock()
	hold := r.armed
	r.armed = false
	r.mu.Unlock()
	if hold {
		close(r.read)
		<-r.release
	}
	return cfg, err
}

func (r *gatedRepo) arm() {
	r.mu.Lock()
	r.armed = true
	r.read = make(chan struct{})
	r.release = make(chan struct{})
	r.mu.Unlock()
}

func TestProviderSlowReadDoesNotOverwriteUpdate(t *testing.T) {
	repo := &gatedRepo{ConfigRepository: memory.NewConfigRepository()}
	provider, err := NewProvider(repo, log.New(io.Discard, "", 0), WithCacheTTL(time.Hour))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	ctx := context.Background()
	if _, err := provider.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	provider.Invalidate()

	repo.arm()
	done := make(chan error, 1)
	go func() {
		_, err := provider.Get(ctx)
		done <- err
	}()
	<-repo.read

	updated, err := provider.Update(ctx, map[string]json.RawMessage{
		"regional_to_community_scaling": json.RawMessage(`0.005`),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("slow get: %v", err)
	}

	cfg, err := provider.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.Version != updated.Version || cfg.RegionalToCommunityScaling != 0.005 {
		t.Fatalf("stale config after update: version=%d scaling=%v", cfg.Version, cfg.RegionalToCommunityScaling)
	}
}

func TestProviderSlowReadDoesNotOverwriteInvalidate(t *testing.T) {
	repo := &gatedRepo{ConfigRepository: memory.NewConfigRepository()}
	provider, err := NewProvider(repo, log.New(io.Discard, "", 0), WithCacheTTL(time.Hour))
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	ctx := context.Background()
	initial, err := provider.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	provider.Invalidate()

	repo.arm()
	done := make(chan error, 1)
	go func() {
		_, err := provider.Get(ctx)
		done <- err
	}()
	<-repo.read

	// Another replica writes, then this one is told to drop its cache.
	next, err := initial.Apply(map[string]json.RawMessage{
		"regional_to_community_scaling": json.RawMessage(`0.004`),
	}, time.Now())
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := repo.ConfigRepository.Save(ctx, next, initial.Version); err != nil {
		t.Fatalf("save: %v", err)
	}
	provider.Invalidate()
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("slow get: %v", err)
	}

	cfg, err := provider.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.RegionalToCommunityScaling != 0.004 {
		t.Fatalf("stale config after invalidate: scaling=%v", cfg.RegionalToCommunityScaling)
	}
}
