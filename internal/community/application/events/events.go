package events

import "time"

// ConfigUpdated is emitted after the community config is written.
type ConfigUpdated struct {
	Version    int       `json:"version"`
	Fields     []string  `json:"fields"`
	Reset      bool      `json:"reset"`
	OccurredAt time.Time `json:"occurred_at"`
}
