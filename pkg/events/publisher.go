package events

import (
	"context"
	"fmt"
)

// Publisher defines the interface for publishing domain events
type Publisher interface {
	// Publish publishes an event to the message broker
	Publish(ctx context.Context, exchange string, event *Event, headers Headers) error

	// Close closes the publisher connection
	Close() error
}

// PublishV1 wraps payload in a v1 envelope with fresh tracing headers and
// publishes it. A nil publisher is a no-op.
func PublishV1(ctx context.Context, p Publisher, service, exchange, name string, payload any) error {
	if p == nil {
		return nil
	}

	headers := NewHeaders(service)
	event := NewEvent(name, EventVersionV1, payload, headers)

	if err := p.Publish(ctx, exchange, event, headers); err != nil {
		return fmt.Errorf("publish %s: %w", event.GetRoutingKey(), err)
	}

	return nil
}
