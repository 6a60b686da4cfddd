// Package app provides the top-level application lifecycle for launchwatch.
// It wires the monitor engine, trade feed, Redis bus, notifier, and HTTP
// server together and starts the goroutines for the configured run mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/launchrlabs/launchwatch/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	startedAt time.Time
	closers   []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, selects the run
// mode, and blocks until the context is cancelled or the mode finishes. On
// return the caller should invoke Close.
func (a *App) Run(ctx context.Context) error {
	a.startedAt = time.Now().UTC()
	a.logger.InfoContext(ctx, "starting launchwatch",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if deps.Notifier != nil {
		if err := deps.Notifier.Announce(ctx, "launchwatch started", "mode: "+a.cfg.Mode); err != nil {
			a.logger.WarnContext(ctx, "startup announcement failed", slog.String("error", err.Error()))
		}
	}

	switch strings.ToLower(a.cfg.Mode) {
	case "live":
		return a.LiveMode(ctx, deps)
	case "replay":
		return a.ReplayMode(ctx, deps)
	case "sim":
		return a.SimMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down launchwatch")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
