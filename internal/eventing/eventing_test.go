package eventing

import (
	"context"
	"errors"
	"testing"
	"time"
)

type sampleEvent struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

type recordingOutbound struct {
	envelopes []Envelope
	err       error
}

func (o *recordingOutbound) Send(_ context.Context, env Envelope) error {
	o.envelopes = append(o.envelopes, env)
	return o.err
}

type recordingDLQ struct {
	failures []Envelope
}

func (d *recordingDLQ) RecordFailure(_ context.Context, env Envelope, _ error) error {
	d.failures = append(d.failures, env)
	return nil
}

type mapProcessed struct {
	seen map[string]bool
}

func (m *mapProcessed) HasProcessed(_ context.Context, eventID, consumer string) (bool, error) {
	return m.seen[consumer+eventID], nil
}

func (m *mapProcessed) MarkProcessed(_ context.Context, eventID, consumer string) error {
	m.seen[consumer+eventID] = true
	return nil
}

func TestInMemoryBus_RunsAllHandlers(t *testing.T) {
	bus := NewInMemoryBus()
	calls := 0
	bus.Subscribe(EventTypeOf[sampleEvent](), func(context.Context, any) error {
		calls++
		return errors.New("first fails")
	})
	bus.Subscribe(EventTypeOf[sampleEvent](), func(context.Context, any) error {
		calls++
		return nil
	})

	err := bus.Publish(context.Background(), &sampleEvent{Name: "a"})
	if err == nil {
		t.Fatalf("expected first handler error")
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if err := bus.Publish(context.Background(), nil); !errors.Is(err, ErrNilEvent) {
		t.Fatalf("expected ErrNilEvent, got %v", err)
	}
}

func TestBuildEnvelope_Defaults(t *testing.T) {
	at := time.Date(2026, 4, 15, 10, 0, 0, 0, time.UTC)
	env, err := BuildEnvelope(sampleEvent{Name: "a", OccurredAt: at}, Meta{Source: "node-1"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if env.EventID == "" || env.CorrelationID != env.EventID {
		t.Fatalf("expected generated id as correlation id, got %+v", env)
	}
	if !env.OccurredAt.Equal(at) {
		t.Fatalf("expected occurred_at from payload, got %v", env.OccurredAt)
	}
	if env.EventType != EventTypeOf[sampleEvent]() || env.SchemaVersion != 1 || env.Source != "node-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestRegistry_DecodePayload(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&sampleEvent{})
	env, err := BuildEnvelope(sampleEvent{Name: "decoded"}, Meta{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	decoded, err := registry.DecodePayload(env)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	event, ok := decoded.(sampleEvent)
	if !ok || event.Name != "decoded" {
		t.Fatalf("unexpected payload %#v", decoded)
	}

	env.EventType = "unknown.Event"
	if _, err := registry.DecodePayload(env); !errors.Is(err, ErrUnknownEventType) {
		t.Fatalf("expected ErrUnknownEventType, got %v", err)
	}
}

func TestPublisher_DeliversLocallyAndForwards(t *testing.T) {
	bus := NewInMemoryBus()
	publisher, err := NewPublisher(bus, "node-1", nil)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	outbound := &recordingOutbound{}
	publisher.SetOutbound(outbound)

	var seen Envelope
	publisher.Subscribe(EventTypeOf[sampleEvent](), func(ctx context.Context, _ any) error {
		seen, _ = EnvelopeFromContext(ctx)
		return nil
	})

	if err := publisher.Publish(WithCorrelationID(context.Background(), "corr-1"), sampleEvent{Name: "a"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if seen.Source != "node-1" || seen.CorrelationID != "corr-1" {
		t.Fatalf("unexpected local envelope %+v", seen)
	}
	if len(outbound.envelopes) != 1 || outbound.envelopes[0].EventID != seen.EventID {
		t.Fatalf("expected forwarded envelope, got %+v", outbound.envelopes)
	}
	if IsRemote(WithEnvelope(context.Background(), seen), "node-1") {
		t.Fatalf("own envelope reported as remote")
	}
}

func TestPublisher_ForwardErrorReturned(t *testing.T) {
	publisher, _ := NewPublisher(NewInMemoryBus(), "node-1", nil)
	publisher.SetOutbound(&recordingOutbound{err: errors.New("broker down")})
	if err := publisher.Publish(context.Background(), sampleEvent{}); err == nil {
		t.Fatalf("expected forward error")
	}
}

func TestDispatcher_DeliverAndDeadLetter(t *testing.T) {
	bus := NewInMemoryBus()
	registry := NewRegistry()
	registry.Register(sampleEvent{})
	dlq := &recordingDLQ{}
	dispatcher := NewDispatcher(bus, registry, dlq)

	var remote bool
	bus.Subscribe(EventTypeOf[sampleEvent](), func(ctx context.Context, event any) error {
		remote = IsRemote(ctx, "node-1")
		if event.(sampleEvent).Name == "bad" {
			return errors.New("boom")
		}
		return nil
	})

	env, _ := BuildEnvelope(sampleEvent{Name: "ok"}, Meta{Source: "node-2"})
	if err := dispatcher.Deliver(context.Background(), env); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !remote {
		t.Fatalf("expected remote envelope in context")
	}

	bad, _ := BuildEnvelope(sampleEvent{Name: "bad"}, Meta{Source: "node-2"})
	if err := dispatcher.Deliver(context.Background(), bad); err == nil {
		t.Fatalf("expected handler error")
	}
	unknown := env
	unknown.EventType = "unknown.Event"
	if err := dispatcher.Deliver(context.Background(), unknown); err == nil {
		t.Fatalf("expected decode error")
	}
	if len(dlq.failures) != 2 {
		t.Fatalf("expected 2 dead letters, got %d", len(dlq.failures))
	}
}

func TestSubscribe_Idempotent(t *testing.T) {
	bus := NewInMemoryBus()
	store := &mapProcessed{seen: map[string]bool{}}
	count := 0
	Subscribe(bus, EventTypeOf[sampleEvent](), "consumer-a", func(context.Context, any) error {
		count++
		return nil
	}, store)

	env, _ := BuildEnvelope(sampleEvent{}, Meta{EventID: "evt-dup-001"})
	ctx := WithEnvelope(context.Background(), env)
	_ = bus.Publish(ctx, sampleEvent{})
	_ = bus.Publish(ctx, sampleEvent{})
	if count != 1 {
		t.Fatalf("expected handler once, got %d", count)
	}

	_ = bus.Publish(context.Background(), sampleEvent{})
	if count != 2 {
		t.Fatalf("expected envelope-less event handled, got %d", count)
	}
}
