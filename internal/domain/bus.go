package domain

import (
	"context"
	"time"
)

// Well-known bus channels and streams.
const (
	ChannelAlert  = "ch:alert"
	ChannelStatus = "ch:status"
	StreamAlerts  = "alerts"
)

// StreamMessage is a single entry read back from a durable alert stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// AlertBus carries serialized alerts out of the process: ephemeral fan-out via
// pub/sub plus an ordered, trimmed stream for catch-up readers.
type AlertBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// RateLimiter provides distributed rate limiting for the HTTP API.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}
