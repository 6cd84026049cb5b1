package eventing

import (
	"context"
	"errors"
)

// Dispatcher delivers envelopes received from other instances to the
// in-process bus.
type Dispatcher struct {
	bus      EventBus
	registry *Registry
	dlq      DLQStore
}

// DLQStore records envelopes that could not be delivered.
type DLQStore interface {
	RecordFailure(ctx context.Context, env Envelope, err error) error
}

// NewDispatcher constructs a dispatcher. dlq may be nil.
func NewDispatcher(bus EventBus, registry *Registry, dlq DLQStore) *Dispatcher {
	return &Dispatcher{bus: bus, registry: registry, dlq: dlq}
}

// Deliver decodes the envelope and publishes the payload with the envelope in
// context. Failures are recorded in the DLQ when one is configured.
func (d *Dispatcher) Deliver(ctx context.Context, env Envelope) error {
	if d == nil || d.bus == nil || d.registry == nil {
		return errors.New("eventing: dispatcher not configured")
	}
	payload, err := d.registry.DecodePayload(env)
	if err != nil {
		d.recordFailure(ctx, env, err)
		return err
	}
	if err := d.bus.Publish(WithEnvelope(ctx, env), payload); err != nil {
		d.recordFailure(ctx, env, err)
		return err
	}
	return nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, env Envelope, err error) {
	if d.dlq == nil {
		return
	}
	_ = d.dlq.RecordFailure(ctx, env, err)
}
