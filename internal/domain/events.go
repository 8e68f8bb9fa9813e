package domain

// EventType identifies an auction event for indexers and UIs.
type EventType string

// Event type constants.
const (
	EventTypeLiquidationStarted EventType = "LiquidationStarted"
	EventTypeLiquidationStopped EventType = "LiquidationStopped"
	EventTypeWithdrew           EventType = "Withdrew"
)

// Event is the envelope published on every committed state change.
// Exactly one payload field is set, matching Type.
type Event struct {
	Type      EventType
	Timestamp int64 // unix ms at commit time

	Started  *LiquidationStarted
	Stopped  *LiquidationStopped
	Withdrew *Withdrew
}

// LiquidationID returns the id of the liquidation the event belongs to,
// or 0 for withdrawal events, which are account-scoped.
func (e *Event) LiquidationID() uint64 {
	switch {
	case e.Started != nil:
		return e.Started.LiquidationID
	case e.Stopped != nil:
		return e.Stopped.LiquidationID
	}
	return 0
}

// LiquidationStarted is emitted when the Bank opens an auction.
type LiquidationStarted struct {
	LiquidationID    uint64
	LoanID           string
	CollateralAmount uint64
	Amount           uint64
	EndTime          int64 // unix ms
}

// LiquidationStopped is emitted when an auction closes successfully.
type LiquidationStopped struct {
	LiquidationID uint64
	LoanID        string
	BestBid       uint64
	BestBidder    string
}

// Withdrew is emitted when an account pulls its escrow balance out.
type Withdrew struct {
	Account string
	Amount  uint64
}
