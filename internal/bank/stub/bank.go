// Package stub provides an in-memory Bank for testing.
package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/siftal/erc20bank/internal/bank"
)

// ErrUnavailable is returned when FailSettle is set.
var ErrUnavailable = errors.New("bank unavailable")

// SettleCall records one settlement callback.
type SettleCall struct {
	LoanID     string
	BestBid    uint64
	BestBidder string
}

// Bank implements bank.Client and records every settlement callback.
type Bank struct {
	mu    sync.Mutex
	calls []SettleCall

	// RefuseSettle makes Settle report collateral-unavailable (false, nil).
	RefuseSettle bool
	// FailSettle makes Settle return an error.
	FailSettle bool
}

// NewBank creates a stub Bank that accepts every settlement.
func NewBank() *Bank {
	return &Bank{}
}

// Settle records the callback and reports the configured outcome.
func (b *Bank) Settle(_ context.Context, loanID string, bestBid uint64, bestBidder string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailSettle {
		return false, ErrUnavailable
	}
	b.calls = append(b.calls, SettleCall{
		LoanID:     loanID,
		BestBid:    bestBid,
		BestBidder: bestBidder,
	})
	if b.RefuseSettle {
		return false, nil
	}
	return true, nil
}

// Calls returns a copy of the recorded settlement callbacks.
func (b *Bank) Calls() []SettleCall {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]SettleCall, len(b.calls))
	copy(out, b.calls)
	return out
}

var _ bank.Client = (*Bank)(nil)
