// Package token defines the settlement-token collaborator port: the
// fungible-token primitives the auction engine needs to custody, refund,
// and destroy bidder funds.
package token

import "context"

// Client defines the settlement-token operations consumed by the engine.
// All amounts are base token units.
type Client interface {
	// Allowance returns how much of owner's funds spender may currently pull.
	Allowance(ctx context.Context, owner, spender string) (uint64, error)

	// TransferFrom moves amount from owner to recipient using the caller's
	// allowance. A false result means the token refused the transfer (no
	// funds moved); an error means the outcome could not be determined.
	TransferFrom(ctx context.Context, owner, recipient string, amount uint64) (bool, error)

	// Transfer moves amount from the engine's own custody to recipient.
	Transfer(ctx context.Context, recipient string, amount uint64) error

	// Burn irreversibly destroys amount units held in the engine's custody.
	Burn(ctx context.Context, amount uint64) error
}
