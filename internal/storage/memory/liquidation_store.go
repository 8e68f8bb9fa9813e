package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/storage"
)

// LiquidationStore is an in-memory implementation of storage.LiquidationStore.
type LiquidationStore struct {
	mu     sync.RWMutex
	data   map[uint64]*domain.Liquidation
	nextID uint64
}

// NewLiquidationStore creates a new in-memory liquidation store.
func NewLiquidationStore() *LiquidationStore {
	return &LiquidationStore{
		data:   make(map[uint64]*domain.Liquidation),
		nextID: 1,
	}
}

// Insert stores a new liquidation and assigns the next sequential id.
func (s *LiquidationStore) Insert(_ context.Context, l *domain.Liquidation) (uint64, error) {
	if l == nil || l.LoanID == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	copy := *l
	copy.ID = id
	s.data[id] = &copy
	return id, nil
}

// GetByID retrieves a liquidation by id. Returns ErrNotFound if not exists.
func (s *LiquidationStore) GetByID(_ context.Context, id uint64) (*domain.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	copy := *l
	return &copy, nil
}

// Update replaces the mutable fields of an existing liquidation.
func (s *LiquidationStore) Update(_ context.Context, l *domain.Liquidation) error {
	if l == nil || l.ID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[l.ID]; !ok {
		return storage.ErrNotFound
	}

	copy := *l
	s.data[l.ID] = &copy
	return nil
}

// GetAll retrieves all liquidations ordered by id ASC.
func (s *LiquidationStore) GetAll(_ context.Context) ([]*domain.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Liquidation, 0, len(s.data))
	for _, l := range s.data {
		copy := *l
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// GetByState retrieves all liquidations in the given state, ordered by id ASC.
func (s *LiquidationStore) GetByState(_ context.Context, state domain.LiquidationState) ([]*domain.Liquidation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Liquidation
	for _, l := range s.data {
		if l.State == state {
			copy := *l
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

var _ storage.LiquidationStore = (*LiquidationStore)(nil)
