package memory

import (
	"context"
	"sync"

	"github.com/siftal/erc20bank/internal/storage"
)

// EscrowStore is an in-memory implementation of storage.EscrowStore.
// Accounts not present in the map have balance zero.
type EscrowStore struct {
	mu       sync.RWMutex
	balances map[string]uint64
}

// NewEscrowStore creates a new in-memory escrow store.
func NewEscrowStore() *EscrowStore {
	return &EscrowStore{
		balances: make(map[string]uint64),
	}
}

// Balance returns the custodied balance of an account (0 if never seen).
func (s *EscrowStore) Balance(_ context.Context, account string) (uint64, error) {
	if account == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account], nil
}

// Credit adds amount to an account's balance.
func (s *EscrowStore) Credit(_ context.Context, account string, amount uint64) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] += amount
	return nil
}

// Debit subtracts amount from an account's balance.
func (s *EscrowStore) Debit(_ context.Context, account string, amount uint64) error {
	if account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[account] < amount {
		return storage.ErrInsufficientBalance
	}
	s.balances[account] -= amount
	return nil
}

// Zero clears an account's balance and returns the amount that was held.
func (s *EscrowStore) Zero(_ context.Context, account string) (uint64, error) {
	if account == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.balances[account]
	delete(s.balances, account)
	return held, nil
}

// Total returns the sum of all balances.
func (s *EscrowStore) Total(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint64
	for _, b := range s.balances {
		total += b
	}
	return total, nil
}

var _ storage.EscrowStore = (*EscrowStore)(nil)
