// Package bank defines the lending-ledger collaborator port. The Bank owns
// loan records and collateral custody; the engine only asks it to hand the
// won collateral to the best bidder at close time.
package bank

import "context"

// Credential is the capability the Bank presents when opening an auction.
// It is validated by value at the engine entry point instead of inspecting
// ambient caller identity.
type Credential string

// Client defines the Bank operations consumed by the engine.
type Client interface {
	// Settle asks the Bank to transfer bestBid units of the loan's collateral
	// to bestBidder. A false result means the collateral is not available and
	// the close must not commit; an error means the outcome could not be
	// determined, which the engine also treats as "do not commit".
	Settle(ctx context.Context, loanID string, bestBid uint64, bestBidder string) (bool, error)
}
