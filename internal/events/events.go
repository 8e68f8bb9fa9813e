// Package events delivers committed auction events to external observers.
// The engine publishes after its own state is durable; sinks must not call
// back into the engine.
package events

import (
	"context"

	"github.com/siftal/erc20bank/internal/domain"
)

// Sink receives every committed auction event.
type Sink interface {
	// Publish delivers one event. Delivery failures are the sink's problem:
	// the engine has already committed and will not unwind for a sink error.
	Publish(ctx context.Context, e *domain.Event)
}

// Multi fans one event out to several sinks in order.
type Multi []Sink

// Publish delivers the event to every sink.
func (m Multi) Publish(ctx context.Context, e *domain.Event) {
	for _, s := range m {
		s.Publish(ctx, e)
	}
}

// Discard is a Sink that drops every event.
type Discard struct{}

// Publish drops the event.
func (Discard) Publish(context.Context, *domain.Event) {}

var (
	_ Sink = Multi(nil)
	_ Sink = Discard{}
)
