package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	redisbus "github.com/launchrlabs/launchwatch/internal/bus/redis"
	"github.com/launchrlabs/launchwatch/internal/config"
	"github.com/launchrlabs/launchwatch/internal/domain"
	"github.com/launchrlabs/launchwatch/internal/monitor"
	"github.com/launchrlabs/launchwatch/internal/notify"
	"github.com/launchrlabs/launchwatch/internal/telemetry"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Monitor *monitor.Monitor
	Metrics *telemetry.Metrics

	// Bus and RateLimiter are nil when Redis is disabled.
	Bus         domain.AlertBus
	RateLimiter domain.RateLimiter

	Notifier *notify.Notifier
}

// monitorConfig converts the file-level monitor section into engine config.
func monitorConfig(mc config.MonitorConfig) monitor.Config {
	return monitor.Config{
		WhaleThreshold:       mc.WhaleThresholdSol,
		LargeThreshold:       mc.LargeThresholdSol,
		LaunchVelocityLimit:  mc.LaunchVelocityLimit,
		AddressVelocityLimit: mc.AddressVelocityLimit,
		PriceChangePct:       mc.PriceChangePct,
		WashMinTrades:        mc.WashMinTrades,
		WashRatio:            mc.WashRatio,
		VolumeMultiplier:     mc.VolumeMultiplier,
		RepeatMinCount:       mc.RepeatMinCount,
		RepeatTolerancePct:   mc.RepeatTolerancePct,
		VolumeWindow:         mc.VolumeWindow.Duration,
		WashWindow:           mc.WashWindow.Duration,
		VelocityWindow:       mc.VelocityWindow.Duration,
		PriceWindow:          mc.PriceWindow.Duration,
		AlertCooldown:        mc.AlertCooldown.Duration,
		SweepInterval:        mc.SweepInterval.Duration,
		AlertRetention:       mc.AlertRetention.Duration,
		AlertBuffer:          mc.AlertBuffer,
	}
}

// Wire constructs the concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	metrics := telemetry.New(prometheus.NewRegistry())

	deps := &Dependencies{
		Metrics: metrics,
		Monitor: monitor.New(monitorConfig(cfg.Monitor), logger).WithMetrics(metrics),
	}

	// --- Redis (optional) ---
	if cfg.Redis.Enabled {
		client, err := redisbus.New(ctx, redisbus.ClientConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout.Duration,
			ReadTimeout:  cfg.Redis.ReadTimeout.Duration,
			WriteTimeout: cfg.Redis.WriteTimeout.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })

		deps.Bus = redisbus.NewAlertBus(client, cfg.Redis.StreamMaxLen)
		deps.RateLimiter = redisbus.NewRateLimiter(client)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.Enabled {
		if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
			senders = append(senders, notify.NewTelegramSender(
				cfg.Notify.TelegramToken,
				cfg.Notify.TelegramChatID,
			))
		}
		if cfg.Notify.DiscordWebhookURL != "" {
			senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
		}
	}
	deps.Notifier = notify.NewNotifier(senders, notify.Config{
		MinSeverity:   domain.Severity(cfg.Notify.MinSeverity),
		Events:        cfg.Notify.Events,
		RatePerMinute: cfg.Notify.RatePerMinute,
	}, logger).WithMetrics(metrics)

	return deps, cleanup, nil
}
