package application

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"

	"energy-square/internal/ingestion/application/events"
	ingestion "energy-square/internal/ingestion/domain"
	"energy-square/internal/ingestion/infrastructure/filestore"
)

type stubMarket struct{}

func (stubMarket) ReadPUN(context.Context, string) ingestion.SourceResult {
	return ingestion.SourceResult{Source: "pun_prices", Records: []ingestion.TimestampedRecord{
		record(8, map[string]ingestion.Float{ingestion.FieldPriceMWh: 110}),
		record(9, map[string]ingestion.Float{ingestion.FieldPriceMWh: 95}),
	}}
}

func (stubMarket) ReadZonal(context.Context, string) ingestion.SourceResult {
	return ingestion.SourceResult{Source: "zonal_prices", Records: []ingestion.TimestampedRecord{
		record(8, map[string]ingestion.Float{"Italia": 110, "Sicilia": 125}),
	}}
}

func (stubMarket) ReadDemand(context.Context, string) ingestion.SourceResult {
	return ingestion.SourceResult{Source: "demand_data", Records: []ingestion.TimestampedRecord{
		record(8, map[string]ingestion.Float{"North": 14000, "Total Italy": 28000}),
		record(9, map[string]ingestion.Float{"North": 15000, "Total Italy": 29000}),
	}}
}

type stubSolar struct{}

func (stubSolar) ReadGeneration(_ context.Context, plantID, _ string) ingestion.SourceResult {
	if plantID == "2" {
		return ingestion.Unavailable("solar_plant_2_generation", errors.New("no file"))
	}
	return ingestion.SourceResult{Source: "solar_plant_1_generation", Records: []ingestion.TimestampedRecord{
		record(8, map[string]ingestion.Float{ingestion.FieldACPower: 400, ingestion.FieldDCPower: 420}),
	}}
}

func (stubSolar) ReadWeather(_ context.Context, plantID, _ string) ingestion.SourceResult {
	return ingestion.SourceResult{Source: "solar_plant_" + plantID + "_weather"}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
}

func (p *recordingPublisher) Publish(_ context.Context, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func TestRunnerPersistsAndPublishes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transformed_data.json")
	repo, err := filestore.NewSnapshotRepository(path)
	if err != nil {
		t.Fatalf("repo: %v", err)
	}
	logger := log.New(io.Discard, "", 0)
	store := NewSnapshotStore(repo, logger)
	publisher := &recordingPublisher{}

	runner, err := NewRunner(DefaultLayout(), stubMarket{}, stubSolar{}, repo, store, publisher, logger, WithSnapshotPath(path))
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID == "" {
		t.Fatalf("expected run id")
	}
	if len(report.Unavailable) != 1 || report.Unavailable[0] != "solar_plant_2_generation" {
		t.Fatalf("unexpected unavailable sources %v", report.Unavailable)
	}

	current := store.Current()
	if current.Metadata.RunID != report.RunID {
		t.Fatalf("expected store to hold run %s, got %s", report.RunID, current.Metadata.RunID)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.events))
	}
	published, ok := publisher.events[0].(events.DatasetPublished)
	if !ok || published.RunID != report.RunID || published.SnapshotPath != path {
		t.Fatalf("unexpected event %+v", publisher.events[0])
	}

	reloaded := NewSnapshotStore(repo, logger)
	if err := reloaded.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := current.RecordCounts()
	got := reloaded.Current().RecordCounts()
	if len(want) != len(got) {
		t.Fatalf("expected %d sources, got %d", len(want), len(got))
	}
	for source, count := range want {
		if got[source] != count {
			t.Fatalf("source %s: expected %d records after reload, got %d", source, count, got[source])
		}
	}
	if reloaded.Current().Metadata.TotalRecords["trading_opportunities"] != 1 {
		t.Fatalf("unexpected metadata counts %v", reloaded.Current().Metadata.TotalRecords)
	}
}

type failingRepo struct{}

func (failingRepo) Save(context.Context, *ingestion.Dataset) error { return errors.New("disk full") }
func (failingRepo) Load(context.Context) (*ingestion.Dataset, error) {
	return nil, ingestion.ErrSnapshotNotFound
}

func TestRunnerKeepsCurrentSnapshotWhenSaveFails(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	store := NewSnapshotStore(failingRepo{}, logger)
	before := store.Current()

	runner, err := NewRunner(DefaultLayout(), stubMarket{}, stubSolar{}, failingRepo{}, store, nil, logger)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	if store.Current() != before {
		t.Fatalf("expected snapshot to stay unchanged")
	}
	if err := store.Reload(context.Background()); !errors.Is(err, ingestion.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestNewRunnerRequiresCollaborators(t *testing.T) {
	if _, err := NewRunner(DefaultLayout(), nil, stubSolar{}, failingRepo{}, NewSnapshotStore(nil, nil), nil, nil); err == nil {
		t.Fatalf("expected error for nil market source")
	}
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	store := NewSnapshotStore(failingRepo{}, logger)
	runner, err := NewRunner(DefaultLayout(), stubMarket{}, stubSolar{}, failingRepo{}, store, nil, logger)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	if _, err := NewScheduler(runner, "every now and then", logger); err == nil {
		t.Fatalf("expected invalid schedule error")
	}
	if _, err := NewScheduler(runner, "@hourly", logger); err != nil {
		t.Fatalf("expected descriptor to be accepted, got %v", err)
	}
}
