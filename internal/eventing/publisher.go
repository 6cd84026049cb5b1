package eventing

import (
	"context"
	"errors"
	"log"
)

// Publisher delivers events to the local bus and forwards their envelopes to
// an optional outbound transport.
type Publisher struct {
	bus      EventBus
	outbound Outbound
	source   string
	logger   *log.Logger
}

// Outbound sends envelopes to other instances.
type Outbound interface {
	Send(ctx context.Context, env Envelope) error
}

// NewPublisher constructs a publisher. source identifies this instance.
func NewPublisher(bus EventBus, source string, logger *log.Logger) (*Publisher, error) {
	if bus == nil {
		return nil, errors.New("eventing: nil bus")
	}
	if source == "" {
		source = NewEventID()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Publisher{bus: bus, source: source, logger: logger}, nil
}

// SetOutbound attaches the outbound transport.
func (p *Publisher) SetOutbound(outbound Outbound) {
	if p == nil {
		return
	}
	p.outbound = outbound
}

// Source returns the instance identifier stamped on published envelopes.
func (p *Publisher) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// Publish delivers the event locally, then forwards it. Local handler errors
// do not stop forwarding.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	if p == nil || p.bus == nil {
		return nil
	}
	env, err := BuildEnvelope(event, MetaFromContext(ctx, p.source))
	if err != nil {
		return err
	}
	localErr := p.bus.Publish(WithEnvelope(ctx, env), event)
	if localErr != nil {
		p.logger.Printf("eventing publisher: local delivery error: type=%s id=%s err=%v", env.EventType, env.EventID, localErr)
	}
	if p.outbound != nil {
		if err := p.outbound.Send(ctx, env); err != nil {
			p.logger.Printf("eventing publisher: forward error: type=%s id=%s err=%v", env.EventType, env.EventID, err)
			return errors.Join(localErr, err)
		}
	}
	return localErr
}

// Subscribe delegates to the underlying bus.
func (p *Publisher) Subscribe(eventType string, handler EventHandler) {
	if p == nil || p.bus == nil {
		return
	}
	p.bus.Subscribe(eventType, handler)
}
