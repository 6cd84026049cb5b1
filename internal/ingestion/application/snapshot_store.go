package application

import (
	"context"
	"errors"
	"log"
	"sync/atomic"

	ingestion "energy-square/internal/ingestion/domain"
)

// SnapshotRepository persists canonical datasets.
type SnapshotRepository interface {
	Save(ctx context.Context, dataset *ingestion.Dataset) error
	Load(ctx context.Context) (*ingestion.Dataset, error)
}

// SnapshotStore holds the current dataset. Published datasets are never
// mutated; Replace swaps the pointer.
type SnapshotStore struct {
	current atomic.Pointer[ingestion.Dataset]
	repo    SnapshotRepository
	logger  *log.Logger
}

// NewSnapshotStore constructs a store starting from an empty dataset.
func NewSnapshotStore(repo SnapshotRepository, logger *log.Logger) *SnapshotStore {
	if logger == nil {
		logger = log.Default()
	}
	s := &SnapshotStore{repo: repo, logger: logger}
	s.current.Store(ingestion.Empty())
	return s
}

// Current returns the published dataset; never nil.
func (s *SnapshotStore) Current() *ingestion.Dataset {
	if s == nil {
		return ingestion.Empty()
	}
	if ds := s.current.Load(); ds != nil {
		return ds
	}
	return ingestion.Empty()
}

// Replace publishes a new dataset.
func (s *SnapshotStore) Replace(dataset *ingestion.Dataset) {
	if s == nil || dataset == nil {
		return
	}
	s.current.Store(dataset)
}

// Reload reads the persisted snapshot and publishes it. A missing snapshot
// keeps the current dataset.
func (s *SnapshotStore) Reload(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return errors.New("snapshot store: nil repository")
	}
	dataset, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, ingestion.ErrSnapshotNotFound) {
			s.logger.Printf("snapshot store: no snapshot yet, serving empty dataset")
		}
		return err
	}
	s.Replace(dataset)
	s.logger.Printf("snapshot store: loaded run=%s records=%v", dataset.Metadata.RunID, dataset.Metadata.TotalRecords)
	return nil
}
