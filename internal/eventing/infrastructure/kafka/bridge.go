package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"energy-square/internal/eventing"
	"energy-square/internal/observability/metrics"
)

const (
	directionPublish = "publish"
	directionConsume = "consume"
	resultSkipped    = "skipped"
)

// Config configures the bridge.
type Config struct {
	Brokers []string
	Topic   string
	// GroupID defaults to a per-instance group so every instance sees every event.
	GroupID string
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Bridge forwards local envelopes to a Kafka topic and delivers envelopes
// published by other instances to the local dispatcher.
type Bridge struct {
	reader     messageReader
	writer     messageWriter
	source     string
	dispatcher *eventing.Dispatcher
	logger     *log.Logger
}

// NewBridge constructs a bridge. source must match the publisher's source so
// that the instance ignores its own events.
func NewBridge(cfg Config, source string, dispatcher *eventing.Dispatcher, logger *log.Logger) (*Bridge, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka bridge: no brokers")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka bridge: empty topic")
	}
	if source == "" {
		return nil, errors.New("kafka bridge: empty source")
	}
	groupID := cfg.GroupID
	if groupID == "" {
		groupID = "energy-square-" + source
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     groupID,
		Topic:       cfg.Topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.LastOffset,
	})
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	return newBridge(reader, writer, source, dispatcher, logger)
}

func newBridge(reader messageReader, writer messageWriter, source string, dispatcher *eventing.Dispatcher, logger *log.Logger) (*Bridge, error) {
	if dispatcher == nil {
		return nil, errors.New("kafka bridge: nil dispatcher")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{reader: reader, writer: writer, source: source, dispatcher: dispatcher, logger: logger}, nil
}

// Send writes the envelope to the topic, keyed by event type.
func (b *Bridge) Send(ctx context.Context, env eventing.Envelope) error {
	if b == nil || b.writer == nil {
		return errors.New("kafka bridge: nil writer")
	}
	value, err := json.Marshal(env)
	if err != nil {
		metrics.IncEventBridge(directionPublish, metrics.ResultError)
		return err
	}
	if err := b.writer.WriteMessages(ctx, kafka.Message{Key: []byte(env.EventType), Value: value}); err != nil {
		metrics.IncEventBridge(directionPublish, metrics.ResultError)
		return err
	}
	metrics.IncEventBridge(directionPublish, metrics.ResultSuccess)
	return nil
}

// Run consumes the topic until ctx is cancelled. Undeliverable messages are
// logged and committed so they are not retried forever.
func (b *Bridge) Run(ctx context.Context) error {
	if b == nil || b.reader == nil {
		return errors.New("kafka bridge: nil reader")
	}
	for {
		msg, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Printf("kafka bridge: fetch error: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if err := b.handle(ctx, msg); err != nil {
			b.logger.Printf("kafka bridge: deliver error: offset=%d err=%v", msg.Offset, err)
		}
		if err := b.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			b.logger.Printf("kafka bridge: commit error: offset=%d err=%v", msg.Offset, err)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, msg kafka.Message) error {
	var env eventing.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		metrics.IncEventBridge(directionConsume, metrics.ResultError)
		return err
	}
	if env.Source == b.source {
		metrics.IncEventBridge(directionConsume, resultSkipped)
		return nil
	}
	if err := b.dispatcher.Deliver(ctx, env); err != nil {
		metrics.IncEventBridge(directionConsume, metrics.ResultError)
		return err
	}
	metrics.IncEventBridge(directionConsume, metrics.ResultSuccess)
	return nil
}

// Close releases the reader and writer.
func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.reader != nil {
		errs = append(errs, b.reader.Close())
	}
	if b.writer != nil {
		errs = append(errs, b.writer.Close())
	}
	return errors.Join(errs...)
}
