// Package stub provides an in-memory settlement token for testing.
package stub

import (
	"context"
	"errors"
	"sync"

	"github.com/siftal/erc20bank/internal/token"
)

// ErrUnavailable is returned by calls forced to fail via the Fail* switches.
var ErrUnavailable = errors.New("token unavailable")

// Token implements token.Client with in-process balances and allowances.
// EngineAccount is the custody account that Transfer and Burn draw from.
type Token struct {
	mu            sync.Mutex
	EngineAccount string
	balances      map[string]uint64
	allowances    map[string]map[string]uint64 // owner → spender → amount
	burned        uint64

	// Failure injection for collaborator-failure tests.
	FailTransferFrom bool // TransferFrom returns an error
	RefuseTransfers  bool // TransferFrom returns false without moving funds
	FailTransfer     bool // Transfer returns an error
	FailBurn         bool // Burn returns an error
}

// NewToken creates a stub token with the given engine custody account.
func NewToken(engineAccount string) *Token {
	return &Token{
		EngineAccount: engineAccount,
		balances:      make(map[string]uint64),
		allowances:    make(map[string]map[string]uint64),
	}
}

// Mint credits amount to an account out of thin air.
func (t *Token) Mint(account string, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] += amount
}

// Approve sets spender's allowance over owner's funds.
func (t *Token) Approve(owner, spender string, amount uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[string]uint64)
	}
	t.allowances[owner][spender] = amount
}

// BalanceOf returns an account's token balance.
func (t *Token) BalanceOf(account string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Burned returns the cumulative amount destroyed.
func (t *Token) Burned() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.burned
}

// Allowance returns spender's remaining allowance over owner's funds.
func (t *Token) Allowance(_ context.Context, owner, spender string) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowances[owner][spender], nil
}

// TransferFrom moves amount from owner to recipient, consuming allowance.
// Returns false without moving funds when allowance or balance is short.
func (t *Token) TransferFrom(_ context.Context, owner, recipient string, amount uint64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FailTransferFrom {
		return false, ErrUnavailable
	}
	if t.RefuseTransfers {
		return false, nil
	}
	if t.allowances[owner][recipient] < amount || t.balances[owner] < amount {
		return false, nil
	}

	t.allowances[owner][recipient] -= amount
	t.balances[owner] -= amount
	t.balances[recipient] += amount
	return true, nil
}

// Transfer moves amount from the engine custody account to recipient.
func (t *Token) Transfer(_ context.Context, recipient string, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FailTransfer {
		return ErrUnavailable
	}
	if t.balances[t.EngineAccount] < amount {
		return errors.New("insufficient custody balance")
	}

	t.balances[t.EngineAccount] -= amount
	t.balances[recipient] += amount
	return nil
}

// Burn destroys amount from the engine custody account.
func (t *Token) Burn(_ context.Context, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FailBurn {
		return ErrUnavailable
	}
	if t.balances[t.EngineAccount] < amount {
		return errors.New("insufficient custody balance")
	}

	t.balances[t.EngineAccount] -= amount
	t.burned += amount
	return nil
}

var _ token.Client = (*Token)(nil)
