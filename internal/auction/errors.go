package auction

import "errors"

// Rejection reasons. Every failed operation rejects as a whole with one of
// these; nothing partially applies.
var (
	// ErrUnauthorized is returned when the open-auction credential does not
	// match the Bank's.
	ErrUnauthorized = errors.New("caller is not the bank")

	// ErrNotFound is returned when the liquidation id is unknown.
	ErrNotFound = errors.New("liquidation not found")

	// ErrNotActive is returned when bidding on or closing a finished auction.
	ErrNotActive = errors.New("auction not active")

	// ErrZeroValue is returned when an amount that must be positive is zero.
	ErrZeroValue = errors.New("amount must be positive")

	// ErrBidTooHigh is returned when a bid exceeds the available collateral.
	ErrBidTooHigh = errors.New("bid exceeds available collateral")

	// ErrBidNotLower is returned when a bid does not strictly improve on the
	// current best bid.
	ErrBidNotLower = errors.New("bid does not improve on current best")

	// ErrAuctionOpen is returned when closing before the deadline.
	ErrAuctionOpen = errors.New("auction still open")

	// ErrNoBids is returned when closing an auction that received no bid.
	ErrNoBids = errors.New("no bid received")

	// ErrInsufficientFunds is returned when the bidder's escrow balance,
	// after the funding pull, does not cover the debt amount.
	ErrInsufficientFunds = errors.New("insufficient escrow funds")

	// ErrNothingToWithdraw is returned when the caller's balance is zero.
	ErrNothingToWithdraw = errors.New("nothing to withdraw")

	// ErrSettleFailed is returned when the Bank reports the collateral is not
	// available; the close commits nothing.
	ErrSettleFailed = errors.New("settlement funds not available")
)

// rejectionReason maps a rejection to its metrics label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNotActive):
		return "not_active"
	case errors.Is(err, ErrZeroValue):
		return "zero_value"
	case errors.Is(err, ErrBidTooHigh):
		return "exceeds_collateral"
	case errors.Is(err, ErrBidNotLower):
		return "not_improving"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	default:
		return "other"
	}
}
