package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/launchrlabs/launchwatch/internal/domain"
	"github.com/launchrlabs/launchwatch/internal/feed"
	"github.com/launchrlabs/launchwatch/internal/server"
	"github.com/launchrlabs/launchwatch/internal/server/handler"
	"github.com/launchrlabs/launchwatch/internal/server/ws"
)

// statusInterval is how often the engine status snapshot is published on the
// status channel for dashboard consumers.
const statusInterval = 15 * time.Second

// errReplayFinished unwinds the errgroup once a replay file is exhausted. It
// is swallowed before ReplayMode returns.
var errReplayFinished = errors.New("replay finished")

// LiveMode consumes the indexer websocket feed and runs the detection engine
// against it. The HTTP server is started when enabled.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode", slog.String("ws_url", a.cfg.Feed.WsURL))

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startEngine(ctx, g, deps); err != nil {
		return err
	}

	f := feed.NewIndexerFeed(
		a.cfg.Feed.WsURL,
		a.cfg.Feed.ReconnectMin.Duration,
		a.cfg.Feed.ReconnectMax.Duration,
		a.tradeHandler(deps),
		a.logger,
		deps.Metrics,
	)
	g.Go(func() error {
		defer f.Close()
		return f.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// ReplayMode plays a capture file through the engine. Without the HTTP server
// the process exits once the file is exhausted; with it, the API stays up so
// the results can be inspected.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode",
		slog.String("path", a.cfg.Feed.ReplayPath),
		slog.Float64("speed", a.cfg.Feed.ReplaySpeed),
	)

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startEngine(ctx, g, deps); err != nil {
		return err
	}

	f := feed.NewReplayFeed(a.cfg.Feed.ReplayPath, a.cfg.Feed.ReplaySpeed, a.tradeHandler(deps), a.logger)
	serveAfterReplay := a.cfg.Server.Enabled
	g.Go(func() error {
		if err := f.Run(ctx); err != nil {
			return err
		}
		if serveAfterReplay {
			return nil
		}
		return errReplayFinished
	})

	if serveAfterReplay {
		a.startHTTPServer(ctx, g, deps)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, errReplayFinished) {
		return err
	}
	return nil
}

// SimMode runs the synthetic trade generator through the engine. Useful for
// dashboard work and detector tuning without a live feed.
func (a *App) SimMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sim mode",
		slog.Int("launches", a.cfg.Feed.SimLaunches),
		slog.Int("traders", a.cfg.Feed.SimTraders),
	)

	g, ctx := errgroup.WithContext(ctx)

	if err := a.startEngine(ctx, g, deps); err != nil {
		return err
	}

	sim := feed.NewSimulator(
		a.cfg.Feed.SimInterval.Duration,
		a.cfg.Feed.SimLaunches,
		a.cfg.Feed.SimTraders,
		a.cfg.Feed.SimSeed,
		a.tradeHandler(deps),
		a.logger,
	)
	g.Go(func() error {
		return sim.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// startEngine starts the monitor and the goroutines every mode shares: the
// alert dispatcher and, when Redis is wired, the periodic status publisher.
func (a *App) startEngine(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	if err := deps.Monitor.Start(); err != nil {
		return fmt.Errorf("app: start monitor: %w", err)
	}

	g.Go(func() error {
		<-ctx.Done()
		if err := deps.Monitor.Stop(); err != nil {
			a.logger.Warn("monitor stop", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})

	g.Go(func() error {
		return a.dispatchAlerts(ctx, deps)
	})

	if deps.Bus != nil {
		g.Go(func() error {
			return a.publishStatus(ctx, deps)
		})
	}

	return nil
}

// tradeHandler adapts the monitor's trade intake to the feed callback shape.
// Rejected trades are logged and dropped; the feed keeps going.
func (a *App) tradeHandler(deps *Dependencies) feed.TradeHandler {
	return func(ctx context.Context, ev domain.TradeEvent) {
		if err := deps.Monitor.ProcessTrade(ctx, ev); err != nil {
			a.logger.DebugContext(ctx, "trade rejected",
				slog.String("launch_id", ev.LaunchID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// dispatchAlerts drains the monitor's alert channel and fans each alert out
// to the log, the Redis bus, and the notifier.
func (a *App) dispatchAlerts(ctx context.Context, deps *Dependencies) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case alert, ok := <-deps.Monitor.Alerts():
			if !ok {
				return nil
			}
			a.handleAlert(ctx, deps, alert)
		}
	}
}

func (a *App) handleAlert(ctx context.Context, deps *Dependencies, alert domain.Alert) {
	a.logger.InfoContext(ctx, "alert",
		slog.String("id", alert.ID),
		slog.String("type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)),
		slog.String("launch_id", alert.LaunchID),
		slog.String("message", alert.Message),
	)

	if deps.Bus != nil {
		payload, err := json.Marshal(alert)
		if err != nil {
			a.logger.WarnContext(ctx, "marshal alert", slog.String("error", err.Error()))
		} else {
			if err := deps.Bus.Publish(ctx, domain.ChannelAlert, payload); err != nil {
				a.logger.WarnContext(ctx, "publish alert", slog.String("error", err.Error()))
			}
			if err := deps.Bus.StreamAppend(ctx, domain.StreamAlerts, payload); err != nil {
				a.logger.WarnContext(ctx, "append alert stream", slog.String("error", err.Error()))
			}
		}
	}

	if deps.Notifier != nil {
		if err := deps.Notifier.Notify(ctx, alert); err != nil {
			a.logger.WarnContext(ctx, "notify alert", slog.String("error", err.Error()))
		}
	}
}

// publishStatus periodically pushes an engine status snapshot to the status
// channel. Dashboard clients also get one directly on websocket connect.
func (a *App) publishStatus(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := deps.Monitor.GlobalStats()
			payload, err := json.Marshal(map[string]any{
				"mode":            a.cfg.Mode,
				"uptime_seconds":  int64(time.Since(a.startedAt).Seconds()),
				"active_launches": stats.ActiveLaunches,
				"total_alerts":    stats.TotalAlerts,
			})
			if err != nil {
				continue
			}
			if err := deps.Bus.Publish(ctx, domain.ChannelStatus, payload); err != nil {
				a.logger.WarnContext(ctx, "publish status", slog.String("error", err.Error()))
			}
		}
	}
}

// startHTTPServer adds the API server goroutines to the given errgroup. The
// websocket hub is registered only when the Redis bus is wired, since it
// feeds from the bus. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(),
		Status:   handler.NewStatusHandler(a.cfg.Mode, a.startedAt, deps.Monitor),
		Alerts:   handler.NewAlertHandler(deps.Monitor, a.logger),
		Launches: handler.NewLaunchHandler(deps.Monitor, a.logger),
		Stats:    handler.NewStatsHandler(deps.Monitor),
	}

	var hub *ws.Hub
	if deps.Bus != nil {
		hub = ws.NewHub(deps.Bus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: a.startedAt,
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, deps.Metrics.Handler(), a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.String("host", a.cfg.Server.Host),
			slog.Int("port", a.cfg.Server.Port),
		)
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})
}
