package application

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"energy-square/internal/ingestion/application/events"
	ingestion "energy-square/internal/ingestion/domain"
	"energy-square/internal/observability/metrics"
)

// MarketSource reads the market workbooks.
type MarketSource interface {
	ReadPUN(ctx context.Context, path string) ingestion.SourceResult
	ReadZonal(ctx context.Context, path string) ingestion.SourceResult
	ReadDemand(ctx context.Context, path string) ingestion.SourceResult
}

// SolarSource reads plant logs.
type SolarSource interface {
	ReadGeneration(ctx context.Context, plantID, path string) ingestion.SourceResult
	ReadWeather(ctx context.Context, plantID, path string) ingestion.SourceResult
}

// EventPublisher publishes ingestion events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// RunReport summarizes one ingestion run.
type RunReport struct {
	RunID        string         `json:"run_id"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	TotalRecords map[string]int `json:"total_records"`
	Unavailable  []string       `json:"unavailable_sources"`
}

// Runner executes ingestion runs: read, canonicalize, persist, publish.
type Runner struct {
	layout    Layout
	market    MarketSource
	solar     SolarSource
	canon     *Canonicalizer
	repo      SnapshotRepository
	store     *SnapshotStore
	publisher EventPublisher
	logger    *log.Logger
	running   atomic.Bool
	path      string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSnapshotPath records the snapshot location in published events.
func WithSnapshotPath(path string) RunnerOption {
	return func(r *Runner) {
		r.path = path
	}
}

// NewRunner constructs a Runner.
func NewRunner(layout Layout, market MarketSource, solar SolarSource, repo SnapshotRepository, store *SnapshotStore, publisher EventPublisher, logger *log.Logger, opts ...RunnerOption) (*Runner, error) {
	if market == nil || solar == nil {
		return nil, errors.New("ingestion runner: nil source reader")
	}
	if repo == nil {
		return nil, errors.New("ingestion runner: nil snapshot repository")
	}
	if store == nil {
		return nil, errors.New("ingestion runner: nil snapshot store")
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Runner{
		layout:    layout,
		market:    market,
		solar:     solar,
		canon:     NewCanonicalizer(layout, logger),
		repo:      repo,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run performs one ingestion run. Concurrent calls fail with
// ErrRunInProgress. The current snapshot is replaced only after it has been
// persisted.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	if r == nil {
		return nil, errors.New("ingestion runner: nil")
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, ingestion.ErrRunInProgress
	}
	defer r.running.Store(false)

	started := time.Now().UTC()
	runID := uuid.NewString()

	inputs := r.read(ctx)
	dataset := r.canon.Build(runID, inputs)

	for source, count := range dataset.Metadata.TotalRecords {
		metrics.SetSourceRecords(source, count)
	}
	for _, source := range dataset.Metadata.Unavailable {
		metrics.IncSourceUnavailable(source)
	}

	if err := r.repo.Save(ctx, dataset); err != nil {
		r.logger.Printf("ingestion runner: save snapshot error: run=%s err=%v", runID, err)
		metrics.ObserveIngestion(metrics.ResultError, time.Since(started))
		return nil, err
	}
	r.store.Replace(dataset)

	finished := time.Now().UTC()
	report := &RunReport{
		RunID:        runID,
		StartedAt:    started,
		FinishedAt:   finished,
		TotalRecords: dataset.Metadata.TotalRecords,
		Unavailable:  dataset.Metadata.Unavailable,
	}
	if r.publisher != nil {
		event := events.DatasetPublished{
			RunID:        runID,
			SnapshotPath: r.path,
			TotalRecords: dataset.Metadata.TotalRecords,
			Unavailable:  dataset.Metadata.Unavailable,
			OccurredAt:   finished,
		}
		if err := r.publisher.Publish(ctx, event); err != nil {
			r.logger.Printf("ingestion runner: publish error: run=%s err=%v", runID, err)
		}
	}
	metrics.ObserveIngestion(metrics.ResultSuccess, finished.Sub(started))
	r.logger.Printf("ingestion runner: run=%s records=%v unavailable=%v", runID, report.TotalRecords, report.Unavailable)
	return report, nil
}

func (r *Runner) read(ctx context.Context) Inputs {
	in := Inputs{Plants: make(map[string]PlantInputs, len(r.layout.Plants))}
	plants := make([]PlantInputs, len(r.layout.Plants))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in.PUN = r.market.ReadPUN(gctx, r.layout.PUNPath())
		return nil
	})
	g.Go(func() error {
		in.Zonal = r.market.ReadZonal(gctx, r.layout.ZonalPath())
		return nil
	})
	g.Go(func() error {
		in.Demand = r.market.ReadDemand(gctx, r.layout.DemandPath())
		return nil
	})
	for i, id := range r.layout.Plants {
		g.Go(func() error {
			plants[i] = PlantInputs{
				Generation: r.solar.ReadGeneration(gctx, id, r.layout.GenerationPath(id)),
				Weather:    r.solar.ReadWeather(gctx, id, r.layout.WeatherPath(id)),
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range r.layout.Plants {
		in.Plants[id] = plants[i]
	}
	return in
}
