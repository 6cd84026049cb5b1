package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"energy-square/internal/eventing"
)

type invalidated struct {
	Version int `json:"version"`
}

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed int
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	r.committed += len(msgs)
	r.mu.Unlock()
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func message(t *testing.T, event any, source string) kafka.Message {
	t.Helper()
	env, err := eventing.BuildEnvelope(event, eventing.Meta{Source: source})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	value, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return kafka.Message{Value: value}
}

func TestBridge_RunDeliversRemoteOnly(t *testing.T) {
	bus := eventing.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(invalidated{})
	var versions []int
	bus.Subscribe(eventing.EventTypeOf[invalidated](), func(_ context.Context, event any) error {
		versions = append(versions, event.(invalidated).Version)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &fakeReader{cancel: cancel, messages: []kafka.Message{
		message(t, invalidated{Version: 2}, "node-2"),
		message(t, invalidated{Version: 3}, "node-1"),
		{Value: []byte("not json")},
	}}
	bridge, err := newBridge(reader, &fakeWriter{}, "node-1", eventing.NewDispatcher(bus, registry, nil), nil)
	if err != nil {
		t.Fatalf("bridge: %v", err)
	}

	if err := bridge.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(versions) != 1 || versions[0] != 2 {
		t.Fatalf("expected only remote version 2, got %v", versions)
	}
	if reader.committed != 3 {
		t.Fatalf("expected all messages committed, got %d", reader.committed)
	}
}

func TestBridge_SendKeysByEventType(t *testing.T) {
	writer := &fakeWriter{}
	dispatcher := eventing.NewDispatcher(eventing.NewInMemoryBus(), eventing.NewRegistry(), nil)
	bridge, _ := newBridge(&fakeReader{}, writer, "node-1", dispatcher, nil)

	env, _ := eventing.BuildEnvelope(invalidated{Version: 4}, eventing.Meta{Source: "node-1"})
	if err := bridge.Send(context.Background(), env); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(writer.messages) != 1 || string(writer.messages[0].Key) != env.EventType {
		t.Fatalf("unexpected messages %+v", writer.messages)
	}

	writer.err = errors.New("broker down")
	if err := bridge.Send(context.Background(), env); err == nil {
		t.Fatalf("expected write error")
	}
}

func TestNewBridge_Validation(t *testing.T) {
	dispatcher := eventing.NewDispatcher(eventing.NewInMemoryBus(), eventing.NewRegistry(), nil)
	if _, err := NewBridge(Config{Topic: "t"}, "node-1", dispatcher, nil); err == nil {
		t.Fatalf("expected broker error")
	}
	if _, err := NewBridge(Config{Brokers: []string{"localhost:9092"}}, "node-1", dispatcher, nil); err == nil {
		t.Fatalf("expected topic error")
	}
}
