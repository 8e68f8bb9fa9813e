package clickhouse

import (
	"context"
	"fmt"

	"github.com/siftal/erc20bank/internal/domain"
	"github.com/siftal/erc20bank/internal/storage"
)

// EventStore implements storage.EventStore using ClickHouse. Events are
// flattened into one wide row per event; columns not used by the event
// type hold zero values.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Insert appends an event.
func (s *EventStore) Insert(ctx context.Context, e *domain.Event) error {
	if e == nil || e.Type == "" {
		return storage.ErrInvalidInput
	}

	var (
		liquidationID    uint64
		loanID           string
		collateralAmount uint64
		amount           uint64
		endTime          int64
		bestBid          uint64
		bestBidder       string
		account          string
	)
	switch {
	case e.Started != nil:
		liquidationID = e.Started.LiquidationID
		loanID = e.Started.LoanID
		collateralAmount = e.Started.CollateralAmount
		amount = e.Started.Amount
		endTime = e.Started.EndTime
	case e.Stopped != nil:
		liquidationID = e.Stopped.LiquidationID
		loanID = e.Stopped.LoanID
		bestBid = e.Stopped.BestBid
		bestBidder = e.Stopped.BestBidder
	case e.Withdrew != nil:
		account = e.Withdrew.Account
		amount = e.Withdrew.Amount
	default:
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO auction_events (
			event_type, timestamp_ms, liquidation_id, loan_id,
			collateral_amount, amount, end_time, best_bid, best_bidder, account
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		string(e.Type), uint64(e.Timestamp), liquidationID, loanID,
		collateralAmount, amount, uint64(endTime), bestBid, bestBidder, account,
	)
	if err != nil {
		return fmt.Errorf("insert auction event: %w", err)
	}
	return nil
}

// GetByLiquidationID retrieves all events for a liquidation, ordered by
// timestamp ASC.
func (s *EventStore) GetByLiquidationID(ctx context.Context, id uint64) ([]*domain.Event, error) {
	if id == 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT event_type, timestamp_ms, liquidation_id, loan_id,
		       collateral_amount, amount, end_time, best_bid, best_bidder, account
		FROM auction_events
		WHERE liquidation_id = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get events by liquidation id: %w", err)
	}
	defer rows.Close()

	var result []*domain.Event
	for rows.Next() {
		var (
			eventType        string
			timestampMs      uint64
			liquidationID    uint64
			loanID           string
			collateralAmount uint64
			amount           uint64
			endTime          uint64
			bestBid          uint64
			bestBidder       string
			account          string
		)
		err := rows.Scan(
			&eventType, &timestampMs, &liquidationID, &loanID,
			&collateralAmount, &amount, &endTime, &bestBid, &bestBidder, &account,
		)
		if err != nil {
			return nil, fmt.Errorf("scan auction event: %w", err)
		}

		e := &domain.Event{
			Type:      domain.EventType(eventType),
			Timestamp: int64(timestampMs),
		}
		switch e.Type {
		case domain.EventTypeLiquidationStarted:
			e.Started = &domain.LiquidationStarted{
				LiquidationID:    liquidationID,
				LoanID:           loanID,
				CollateralAmount: collateralAmount,
				Amount:           amount,
				EndTime:          int64(endTime),
			}
		case domain.EventTypeLiquidationStopped:
			e.Stopped = &domain.LiquidationStopped{
				LiquidationID: liquidationID,
				LoanID:        loanID,
				BestBid:       bestBid,
				BestBidder:    bestBidder,
			}
		case domain.EventTypeWithdrew:
			e.Withdrew = &domain.Withdrew{
				Account: account,
				Amount:  amount,
			}
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auction events: %w", err)
	}

	return result, nil
}
