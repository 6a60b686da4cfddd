package domain

import (
	"fmt"
	"math"
	"time"
)

// Side is the direction of a bonding-curve trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TradeEvent is a single executed trade on a launch's bonding curve, as
// reported by the indexer. Events are immutable facts; timestamps may arrive
// slightly out of order. LaunchID, Trader, and Signature are opaque strings;
// no on-chain decoding happens in this service.
type TradeEvent struct {
	LaunchID    string    `json:"launch_id"`
	Trader      string    `json:"trader"`
	Side        Side      `json:"side"`
	SolAmount   float64   `json:"sol_amount"`
	TokenAmount float64   `json:"token_amount"`
	Price       float64   `json:"price"`
	Timestamp   time.Time `json:"timestamp"`
	Signature   string    `json:"signature"`
}

// Validate reports whether the event satisfies the ingestion contract. All
// violations wrap ErrInvalidTrade so callers can branch with errors.Is.
func (t *TradeEvent) Validate() error {
	switch {
	case t.LaunchID == "":
		return fmt.Errorf("%w: empty launch id", ErrInvalidTrade)
	case t.Trader == "":
		return fmt.Errorf("%w: empty trader", ErrInvalidTrade)
	case t.Signature == "":
		return fmt.Errorf("%w: empty signature", ErrInvalidTrade)
	case t.Side != SideBuy && t.Side != SideSell:
		return fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, t.Side)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"sol_amount", t.SolAmount},
		{"token_amount", t.TokenAmount},
		{"price", t.Price},
	} {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%w: %s must be a non-negative finite number, got %v", ErrInvalidTrade, f.name, f.value)
		}
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidTrade)
	}
	return nil
}
