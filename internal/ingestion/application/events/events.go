package events

import "time"

// DatasetPublished is emitted once a new canonical snapshot has been
// persisted and made current.
type DatasetPublished struct {
	RunID        string         `json:"run_id"`
	SnapshotPath string         `json:"snapshot_path"`
	TotalRecords map[string]int `json:"total_records"`
	Unavailable  []string       `json:"unavailable_sources,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}
