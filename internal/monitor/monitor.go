// Package monitor implements the launch anomaly engine. It maintains
// per-launch and per-trader sliding-window state, runs a pipeline of
// detectors on every trade, throttles duplicate alerts, and periodically
// evicts stale entities. All state is in-memory; the monitor performs no I/O
// and publishes admitted alerts to a bounded channel that the application
// layer drains.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/launchrlabs/launchwatch/internal/domain"
	"github.com/launchrlabs/launchwatch/internal/telemetry"
)

// Monitor is an explicit service instance owning all detection state.
// Construct with New, then Start to run the eviction sweeper; Stop halts the
// sweeper and clears all state.
type Monitor struct {
	cfg     Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	now     func() time.Time

	mu       sync.RWMutex
	launches map[string]*launchState
	alerts   []domain.Alert
	throttle map[string]time.Time
	running  bool

	out  chan domain.Alert
	stop chan struct{}
	done chan struct{}
}

// New creates a Monitor with the given configuration. Zero config fields are
// replaced by defaults.
func New(cfg Config, logger *slog.Logger) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "monitor")),
		metrics:  telemetry.NewNop(),
		now:      time.Now,
		launches: make(map[string]*launchState),
		throttle: make(map[string]time.Time),
		out:      make(chan domain.Alert, cfg.AlertBuffer),
	}
}

// WithMetrics attaches a telemetry registry. Returns the monitor for chaining.
func (m *Monitor) WithMetrics(metrics *telemetry.Metrics) *Monitor {
	if metrics != nil {
		m.metrics = metrics
	}
	return m
}

// Alerts returns the channel carrying admitted alerts in admission order. The
// channel is never closed; when its buffer is full new alerts are dropped,
// never trades.
func (m *Monitor) Alerts() <-chan domain.Alert {
	return m.out
}

// Start launches the eviction sweeper. Calling Start on a running monitor
// returns ErrAlreadyRunning.
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run()

	m.logger.Info("monitor started",
		slog.Duration("sweep_interval", m.cfg.SweepInterval),
		slog.Duration("volume_window", m.cfg.VolumeWindow),
		slog.Duration("alert_cooldown", m.cfg.AlertCooldown),
	)
	return nil
}

// Stop synchronously halts the sweeper and clears all launch, alert, and
// throttle state. Safe to call on a stopped monitor.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	close(m.stop)
	<-m.done

	m.mu.Lock()
	m.launches = make(map[string]*launchState)
	m.alerts = nil
	m.throttle = make(map[string]time.Time)
	m.mu.Unlock()

	m.logger.Info("monitor stopped")
	return nil
}

// ProcessTrade validates and ingests one trade event: state update first,
// then the detector pipeline, then the throttle. Admitted alerts are appended
// to the alert log and pushed to the output channel without blocking.
func (m *Monitor) ProcessTrade(ctx context.Context, ev domain.TradeEvent) error {
	if err := ev.Validate(); err != nil {
		m.metrics.TradeRejected()
		return err
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return domain.ErrNotRunning
	}

	ls, ta, obs := m.record(ev)
	candidates := m.runDetectors(ctx, ev, ls, ta, obs)

	admitted := make([]domain.Alert, 0, len(candidates))
	for _, a := range candidates {
		if !m.admit(a) {
			m.metrics.AlertSuppressed(string(a.Type))
			continue
		}
		m.alerts = append(m.alerts, a)
		if a.Trader != "" {
			ta.lastAlert[a.Type] = a.Timestamp
		}
		admitted = append(admitted, a)
	}
	m.metrics.TradeProcessed()
	m.mu.Unlock()

	for _, a := range admitted {
		select {
		case m.out <- a:
			m.metrics.AlertEmitted(string(a.Type), string(a.Severity))
			m.logger.InfoContext(ctx, "alert emitted",
				slog.String("alert_id", a.ID),
				slog.String("type", string(a.Type)),
				slog.String("severity", string(a.Severity)),
				slog.String("launch_id", a.LaunchID),
			)
		default:
			m.metrics.AlertDropped()
			m.logger.WarnContext(ctx, "alert channel full, dropping alert",
				slog.String("alert_id", a.ID),
				slog.String("type", string(a.Type)),
			)
		}
	}
	return nil
}

// run is the sweeper loop started by Start.
func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep prunes stale trades, prices, traders, launches, alerts, and throttle
// entries. Idempotent; holds the write lock for the duration of the pass.
func (m *Monitor) sweep() {
	started := time.Now()

	m.mu.Lock()
	now := m.now()
	cutoff := now.Add(-2 * m.cfg.maxWindow())

	for id, ls := range m.launches {
		ls.trades = pruneTrades(ls.trades, cutoff)
		ls.prices = prunePrices(ls.prices, cutoff)
		for addr, ta := range ls.traders {
			ta.trades = pruneTrades(ta.trades, cutoff)
			if len(ta.trades) == 0 {
				delete(ls.traders, addr)
			}
		}
		if len(ls.trades) == 0 {
			delete(m.launches, id)
		}
	}

	alertCutoff := now.Add(-m.cfg.AlertRetention)
	kept := m.alerts[:0]
	for _, a := range m.alerts {
		if !a.Timestamp.Before(alertCutoff) {
			kept = append(kept, a)
		}
	}
	m.alerts = kept

	throttleCutoff := now.Add(-2 * m.cfg.AlertCooldown)
	for key, last := range m.throttle {
		if last.Before(throttleCutoff) {
			delete(m.throttle, key)
		}
	}

	active := len(m.launches)
	m.mu.Unlock()

	m.metrics.SweepCompleted(time.Since(started), active)
	m.logger.Debug("sweep completed",
		slog.Int("active_launches", active),
		slog.Duration("took", time.Since(started)),
	)
}
