package ingestion

import "errors"

var (
	// ErrSourceUnavailable indicates a raw input could not be read or parsed.
	ErrSourceUnavailable = errors.New("ingestion: source unavailable")
	// ErrInvalidSlot indicates an hour or period outside the accepted range.
	ErrInvalidSlot = errors.New("ingestion: invalid hour/period")
	// ErrInvalidTimestamp indicates a date or time that no layout could parse.
	ErrInvalidTimestamp = errors.New("ingestion: invalid timestamp")
	// ErrSnapshotNotFound indicates no snapshot has been persisted yet.
	ErrSnapshotNotFound = errors.New("ingestion: snapshot not found")
	// ErrRunInProgress indicates an ingestion run is already executing.
	ErrRunInProgress = errors.New("ingestion: run in progress")
)
