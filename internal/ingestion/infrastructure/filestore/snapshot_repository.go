package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	ingestion "energy-square/internal/ingestion/domain"
)

// SnapshotRepository persists the canonical dataset as one JSON document.
type SnapshotRepository struct {
	path string
}

// NewSnapshotRepository constructs a repository writing to path.
func NewSnapshotRepository(path string) (*SnapshotRepository, error) {
	if path == "" {
		return nil, errors.New("snapshot repo: empty path")
	}
	return &SnapshotRepository{path: path}, nil
}

// Path returns the snapshot location.
func (r *SnapshotRepository) Path() string {
	return r.path
}

// Save writes the dataset atomically by renaming a temp file into place.
func (r *SnapshotRepository) Save(ctx context.Context, dataset *ingestion.Dataset) error {
	if r == nil {
		return errors.New("snapshot repo: nil repository")
	}
	if dataset == nil {
		return errors.New("snapshot repo: nil dataset")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".snapshot-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dataset); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path)
}

// Load reads the persisted dataset.
func (r *SnapshotRepository) Load(ctx context.Context) (*ingestion.Dataset, error) {
	if r == nil {
		return nil, errors.New("snapshot repo: nil repository")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ingestion.ErrSnapshotNotFound
		}
		return nil, err
	}
	defer file.Close()

	dataset := ingestion.Empty()
	if err := json.NewDecoder(file).Decode(dataset); err != nil {
		return nil, err
	}
	if dataset.SolarData == nil {
		dataset.SolarData = map[string]ingestion.PlantSeries{}
	}
	return dataset, nil
}
