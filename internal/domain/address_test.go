package domain

import (
	"errors"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid key", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8", false},
		{"valid key 2", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", false},
		{"valid key 3", "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s", false},
		{"zero address accepted", ZeroAddress, false},
		{"empty", "", true},
		{"not base58", "not-base58-0OIl", true},
		{"too short", "abc", true},
		{"too long", "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8aaaa", true},
		{"off curve", "8opHzTAnfzRpPEx21XtnrVTX28YQuCpAjcn1PczScKh", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.addr)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Errorf("Expected ErrInvalidAddress, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected valid, got %v", err)
			}
		})
	}
}

func TestHasBid(t *testing.T) {
	l := &Liquidation{BestBid: 0, BestBidder: ZeroAddress}
	if l.HasBid() {
		t.Error("Expected no bid for bestBid 0")
	}

	l.BestBid = 60
	l.BestBidder = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	if !l.HasBid() {
		t.Error("Expected bid present for bestBid 60")
	}
}

func TestEventLiquidationID(t *testing.T) {
	started := &Event{Type: EventTypeLiquidationStarted, Started: &LiquidationStarted{LiquidationID: 7}}
	if got := started.LiquidationID(); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}

	stopped := &Event{Type: EventTypeLiquidationStopped, Stopped: &LiquidationStopped{LiquidationID: 9}}
	if got := stopped.LiquidationID(); got != 9 {
		t.Errorf("Expected 9, got %d", got)
	}

	withdrew := &Event{Type: EventTypeWithdrew, Withdrew: &Withdrew{Account: "a", Amount: 1}}
	if got := withdrew.LiquidationID(); got != 0 {
		t.Errorf("Expected 0 for account-scoped event, got %d", got)
	}
}
