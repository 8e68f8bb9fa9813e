package events

import (
	"context"
	"log"

	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/storage"
)

// Archive is a Sink that appends every event to an EventStore, giving
// indexers a durable history beside the live feed.
type Archive struct {
	store  storage.EventStore
	logger *log.Logger
}

// NewArchive creates an archive sink over the given store.
func NewArchive(store storage.EventStore, logger *log.Logger) *Archive {
	if logger == nil {
		logger = log.Default()
	}
	return &Archive{store: store, logger: logger}
}

// Publish appends the event. The engine has already committed, so an
// archive failure is logged, not propagated.
func (a *Archive) Publish(ctx context.Context, e *domain.Event) {
	if err := a.store.Insert(ctx, e); err != nil {
		a.logger.Printf("archive event %s: %v", e.Type, err)
	}
}

var _ Sink = (*Archive)(nil)
