package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	events []*domain.Event
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Insert appends an event.
func (s *EventStore) Insert(_ context.Context, e *domain.Event) error {
	if e == nil || e.Type == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *e
	s.events = append(s.events, &copy)
	return nil
}

// GetByLiquidationID retrieves all events for a liquidation, ordered by
// timestamp ASC.
func (s *EventStore) GetByLiquidationID(_ context.Context, id uint64) ([]*domain.Event, error) {
	if id == 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.events {
		if e.LiquidationID() == id {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

var _ storage.EventStore = (*EventStore)(nil)
