package memory

import (
	"context"
	"errors"
	"sync"
)

const defaultProcessedCapacity = 4096

// ProcessedStore remembers the most recent processed (event, consumer) pairs.
// The oldest entries are forgotten once capacity is reached.
type ProcessedStore struct {
	mu       sync.Mutex
	capacity int
	seen     map[string]struct{}
	order    []string
}

// NewProcessedStore constructs a store. A non-positive capacity uses the default.
func NewProcessedStore(capacity int) *ProcessedStore {
	if capacity <= 0 {
		capacity = defaultProcessedCapacity
	}
	return &ProcessedStore{capacity: capacity, seen: make(map[string]struct{})}
}

// HasProcessed checks if event was already processed by the consumer.
func (s *ProcessedStore) HasProcessed(ctx context.Context, eventID, consumerName string) (bool, error) {
	_ = ctx
	if eventID == "" || consumerName == "" {
		return false, errors.New("processed store: invalid arguments")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[processedKey(eventID, consumerName)]
	return ok, nil
}

// MarkProcessed records an event as processed.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, eventID, consumerName string) error {
	_ = ctx
	if eventID == "" || consumerName == "" {
		return errors.New("processed store: invalid arguments")
	}
	key := processedKey(eventID, consumerName)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return nil
	}
	s.seen[key] = struct{}{}
	s.order = append(s.order, key)
	for len(s.order) > s.capacity {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func processedKey(eventID, consumerName string) string {
	return consumerName + "|" + eventID
}
