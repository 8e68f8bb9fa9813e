package storage

import (
	"context"

	"github.com/siftal/erc20bank/internal/domain"
)

// LiquidationStore provides access to liquidation records.
// Records are never deleted; FINISHED rows remain queryable for audit.
type LiquidationStore interface {
	// Insert stores a new liquidation and assigns the next sequential id
	// (ids start at 1 and increase by exactly 1 per insert).
	Insert(ctx context.Context, l *domain.Liquidation) (uint64, error)

	// GetByID retrieves a liquidation by id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id uint64) (*domain.Liquidation, error)

	// Update replaces the mutable fields (best bid, best bidder, state) of an
	// existing liquidation. Returns ErrNotFound if not exists.
	Update(ctx context.Context, l *domain.Liquidation) error

	// GetAll retrieves all liquidations ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.Liquidation, error)

	// GetByState retrieves all liquidations in the given state, ordered by id ASC.
	GetByState(ctx context.Context, state domain.LiquidationState) ([]*domain.Liquidation, error)
}

// EscrowStore provides access to the per-account escrow balance ledger.
// Balances are created implicitly at zero on first reference and persist
// until withdrawn; they are never force-cleared.
type EscrowStore interface {
	// Balance returns the custodied balance of an account (0 if never seen).
	Balance(ctx context.Context, account string) (uint64, error)

	// Credit adds amount to an account's balance.
	Credit(ctx context.Context, account string, amount uint64) error

	// Debit subtracts amount from an account's balance.
	// Returns ErrInsufficientBalance if the balance is smaller than amount.
	Debit(ctx context.Context, account string, amount uint64) error

	// Zero clears an account's balance and returns the amount that was held.
	Zero(ctx context.Context, account string) (uint64, error)

	// Total returns the sum of all balances.
	Total(ctx context.Context) (uint64, error)
}

// EventStore provides access to the append-only auction event archive.
type EventStore interface {
	// Insert appends an event. Events are never updated or deleted.
	Insert(ctx context.Context, e *domain.Event) error

	// GetByLiquidationID retrieves all events for a liquidation, ordered by
	// timestamp ASC. Withdrawal events are account-scoped and not returned here.
	GetByLiquidationID(ctx context.Context, id uint64) ([]*domain.Event, error)
}
