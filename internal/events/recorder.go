package events

import (
	"context"
	"sync"

	"github.com/siftal/erc20bank/internal/domain"
)

// Recorder is a Sink that keeps every published event in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []*domain.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish stores a copy of the event.
func (r *Recorder) Publish(_ context.Context, e *domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copy := *e
	r.events = append(r.events, &copy)
}

// Events returns all recorded events in publication order.
func (r *Recorder) Events() []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType returns recorded events of one type, in publication order.
func (r *Recorder) ByType(t domain.EventType) []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

var _ Sink = (*Recorder)(nil)
