// Package feed provides the trade sources for the three run modes: a live
// indexer websocket feed, a JSONL capture replay, and a synthetic simulator.
// All sources decode into domain.TradeEvent and hand each event to a
// TradeHandler; validation happens downstream in the monitor.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// TradeHandler is called for each decoded trade event.
type TradeHandler func(ctx context.Context, ev domain.TradeEvent)

// Source is a trade source that runs until its context is cancelled or the
// source is exhausted.
type Source interface {
	Run(ctx context.Context) error
}

// envelope is the outer indexer wire format. Only "trade" envelopes carry a
// payload this package cares about; heartbeats and status frames are skipped.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// wireTrade is the trade payload as the indexer emits it. Timestamps are Unix
// milliseconds.
type wireTrade struct {
	LaunchID    string  `json:"launch_id"`
	Trader      string  `json:"trader"`
	Side        string  `json:"side"`
	SolAmount   float64 `json:"sol_amount"`
	TokenAmount float64 `json:"token_amount"`
	Price       float64 `json:"price"`
	Timestamp   int64   `json:"timestamp"`
	Signature   string  `json:"signature"`
}

func (w wireTrade) toDomain() domain.TradeEvent {
	return domain.TradeEvent{
		LaunchID:    w.LaunchID,
		Trader:      w.Trader,
		Side:        domain.Side(w.Side),
		SolAmount:   w.SolAmount,
		TokenAmount: w.TokenAmount,
		Price:       w.Price,
		Timestamp:   time.UnixMilli(w.Timestamp),
		Signature:   w.Signature,
	}
}

// decodeTrade parses one wire message. It accepts both the full envelope form
// and a bare trade object (as found in capture files). ok is false for
// envelope types other than "trade".
func decodeTrade(raw []byte) (domain.TradeEvent, bool, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.TradeEvent{}, false, fmt.Errorf("feed: decode envelope: %w", err)
	}

	payload := raw
	if env.Type != "" {
		if env.Type != "trade" {
			return domain.TradeEvent{}, false, nil
		}
		payload = env.Data
	}

	var wt wireTrade
	if err := json.Unmarshal(payload, &wt); err != nil {
		return domain.TradeEvent{}, false, fmt.Errorf("feed: decode trade: %w", err)
	}
	return wt.toDomain(), true, nil
}
