package domain

// LiquidationState is the lifecycle state of a liquidation auction.
// The only transition is ACTIVE → FINISHED; a finished auction is never
// reopened.
type LiquidationState string

// Liquidation state constants.
const (
	LiquidationStateActive   LiquidationState = "ACTIVE"
	LiquidationStateFinished LiquidationState = "FINISHED"
)

// Liquidation represents one collateral-for-debt reverse auction tied to a
// single loan. Records are append-only audit data: a finished liquidation
// stays queryable forever.
type Liquidation struct {
	ID               uint64           // sequential, starts at 1, no gaps
	LoanID           string           // opaque reference into the Bank's ledger
	CollateralAmount uint64           // upper bound on collateral a bid may claim
	Amount           uint64           // debt to settle; also the per-bidder escrow lock
	EndTime          int64            // unix ms deadline after which close is allowed
	BestBid          uint64           // lowest accepted bid so far; 0 = no bid yet
	BestBidder       string           // holder of the current best bid; zero address while BestBid == 0
	State            LiquidationState // ACTIVE or FINISHED
	CreatedAt        int64            // unix ms
}

// HasBid reports whether at least one bid was accepted.
func (l *Liquidation) HasBid() bool {
	return l.BestBid != 0
}
