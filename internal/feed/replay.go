package feed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// maxReplayLine bounds a single capture line.
const maxReplayLine = 1 << 20

// ReplayFeed reads a JSONL trade capture and feeds it through the handler.
// Lines may be bare trade objects or full indexer envelopes. With speed > 0
// the feed sleeps between trades to reproduce the original event spacing
// scaled by speed (1 = realtime, 2 = twice as fast); speed 0 replays as fast
// as possible.
type ReplayFeed struct {
	path    string
	speed   float64
	onTrade TradeHandler
	logger  *slog.Logger
}

// NewReplayFeed creates a replay source for the capture at path.
func NewReplayFeed(path string, speed float64, onTrade TradeHandler, logger *slog.Logger) *ReplayFeed {
	return &ReplayFeed{
		path:    path,
		speed:   speed,
		onTrade: onTrade,
		logger:  logger.With(slog.String("component", "replay_feed")),
	}
}

// Run replays the capture once and returns. A cancelled context aborts the
// replay mid-file.
func (f *ReplayFeed) Run(ctx context.Context) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("feed: open replay %s: %w", f.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxReplayLine)

	f.logger.Info("replay started", slog.String("path", f.path), slog.Float64("speed", f.speed))

	var (
		replayed int
		skipped  int
		prev     time.Time
	)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, ok, err := decodeTrade(line)
		if err != nil {
			skipped++
			f.logger.Debug("replay line skipped", slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}

		if f.speed > 0 && !prev.IsZero() {
			if gap := ev.Timestamp.Sub(prev); gap > 0 {
				if err := sleepCtx(ctx, time.Duration(float64(gap)/f.speed)); err != nil {
					return err
				}
			}
		}
		prev = ev.Timestamp

		f.onTrade(ctx, ev)
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("feed: read replay %s: %w", f.path, err)
	}

	f.logger.Info("replay finished",
		slog.Int("trades", replayed),
		slog.Int("skipped", skipped),
	)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
