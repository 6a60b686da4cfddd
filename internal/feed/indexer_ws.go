package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/launchrlabs/launchwatch/internal/telemetry"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second
)

// subscribeCommand is sent after connecting to start the trade stream.
type subscribeCommand struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

// IndexerFeed connects to the launch indexer websocket, subscribes to the
// trade stream, and invokes the handler for each decoded trade. It reconnects
// with exponential backoff on disconnect and runs until its context is
// cancelled or Close is called.
type IndexerFeed struct {
	wsURL      string
	minBackoff time.Duration
	maxBackoff time.Duration
	onTrade    TradeHandler
	logger     *slog.Logger
	metrics    *telemetry.Metrics

	closeOnce sync.Once
	done      chan struct{}
}

// NewIndexerFeed creates a live feed for the given websocket endpoint.
func NewIndexerFeed(wsURL string, minBackoff, maxBackoff time.Duration, onTrade TradeHandler, logger *slog.Logger, metrics *telemetry.Metrics) *IndexerFeed {
	if metrics == nil {
		metrics = telemetry.NewNop()
	}
	return &IndexerFeed{
		wsURL:      wsURL,
		minBackoff: minBackoff,
		maxBackoff: maxBackoff,
		onTrade:    onTrade,
		logger:     logger.With(slog.String("component", "indexer_feed")),
		metrics:    metrics,
		done:       make(chan struct{}),
	}
}

// Run connects and consumes trades until ctx is cancelled. Each dropped
// connection is re-established with exponential backoff.
func (f *IndexerFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		conn, err := f.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		err = f.consume(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		select {
		case <-f.done:
			return nil
		default:
		}

		f.metrics.FeedReconnect()
		f.logger.Warn("indexer ws disconnected, reconnecting", slog.String("error", err.Error()))
	}
}

// dial connects with exponential backoff until it succeeds or ctx is done.
func (f *IndexerFeed) dial(ctx context.Context) (*websocket.Conn, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.minBackoff
	bo.MaxInterval = f.maxBackoff
	bo.MaxElapsedTime = 0

	var conn *websocket.Conn
	operation := func() error {
		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		c, _, err := dialer.DialContext(ctx, f.wsURL, nil)
		if err != nil {
			f.logger.Debug("indexer ws dial failed", slog.String("error", err.Error()))
			return err
		}
		conn = c
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("feed: dial %s: %w", f.wsURL, err)
	}
	return conn, nil
}

// consume subscribes and reads messages until the connection breaks.
func (f *IndexerFeed) consume(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)

	// Unblock the blocking read when the context or feed is shut down.
	go func() {
		select {
		case <-ctx.Done():
		case <-f.done:
		case <-stop:
			return
		}
		_ = conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		_ = conn.Close()
	}()

	if err := f.subscribe(conn); err != nil {
		return err
	}
	f.logger.Info("indexer ws subscribed", slog.String("url", f.wsURL))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go f.pingLoop(conn, stop)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, ok, err := decodeTrade(raw)
		if err != nil {
			// Bad frames are dropped, not fatal.
			f.logger.Debug("indexer ws message dropped",
				slog.String("error", err.Error()),
				slog.Int("payload_len", len(raw)),
			)
			continue
		}
		if !ok {
			continue
		}
		f.onTrade(ctx, ev)
	}
}

func (f *IndexerFeed) subscribe(conn *websocket.Conn) error {
	cmd := subscribeCommand{Type: "subscribe", Channel: "trades"}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("feed: marshal subscribe: %w", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	return nil
}

// pingLoop sends periodic ping messages to keep the websocket alive.
func (f *IndexerFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close stops the feed.
func (f *IndexerFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
