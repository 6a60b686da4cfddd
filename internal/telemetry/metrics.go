// Package telemetry exposes Prometheus instrumentation for the engine and
// its adapters. All collectors hang off an explicit registry so tests can use
// an isolated one.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every collector the service registers.
type Metrics struct {
	registry *prometheus.Registry

	tradesProcessed  prometheus.Counter
	tradesRejected   prometheus.Counter
	alertsEmitted    *prometheus.CounterVec
	alertsSuppressed *prometheus.CounterVec
	alertsDropped    prometheus.Counter
	detectorPanics   *prometheus.CounterVec
	sweepDuration    prometheus.Histogram
	activeLaunches   prometheus.Gauge
	feedReconnects   prometheus.Counter
	notifyFailures   *prometheus.CounterVec
	notifyThrottled  prometheus.Counter
}

// New registers all collectors on the given registry.
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		tradesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_trades_processed_total",
			Help: "Trade events accepted by the monitor.",
		}),
		tradesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_trades_rejected_total",
			Help: "Trade events rejected at validation.",
		}),
		alertsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_alerts_emitted_total",
			Help: "Alerts admitted past the throttle and published.",
		}, []string{"type", "severity"}),
		alertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_alerts_suppressed_total",
			Help: "Alerts suppressed by the cooldown throttle.",
		}, []string{"type"}),
		alertsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_alerts_dropped_total",
			Help: "Admitted alerts dropped because the output channel was full.",
		}),
		detectorPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_detector_panics_total",
			Help: "Recovered panics per detector.",
		}, []string{"detector"}),
		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "launchwatch_sweep_duration_seconds",
			Help:    "Duration of eviction sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		activeLaunches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "launchwatch_active_launches",
			Help: "Launches currently tracked by the monitor.",
		}),
		feedReconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_feed_reconnects_total",
			Help: "Reconnect attempts made by the live trade feed.",
		}),
		notifyFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "launchwatch_notify_failures_total",
			Help: "Delivery failures per notification sender.",
		}, []string{"sender"}),
		notifyThrottled: factory.NewCounter(prometheus.CounterOpts{
			Name: "launchwatch_notify_throttled_total",
			Help: "Notifications dropped by the outbound rate limit.",
		}),
	}
}

// NewNop returns metrics backed by a private throwaway registry, for
// components constructed without telemetry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) TradeProcessed() { m.tradesProcessed.Inc() }
func (m *Metrics) TradeRejected()  { m.tradesRejected.Inc() }

func (m *Metrics) AlertEmitted(alertType, severity string) {
	m.alertsEmitted.WithLabelValues(alertType, severity).Inc()
}

func (m *Metrics) AlertSuppressed(alertType string) {
	m.alertsSuppressed.WithLabelValues(alertType).Inc()
}

func (m *Metrics) AlertDropped() { m.alertsDropped.Inc() }

func (m *Metrics) DetectorPanic(detector string) {
	m.detectorPanics.WithLabelValues(detector).Inc()
}

func (m *Metrics) SweepCompleted(took time.Duration, activeLaunches int) {
	m.sweepDuration.Observe(took.Seconds())
	m.activeLaunches.Set(float64(activeLaunches))
}

func (m *Metrics) FeedReconnect() { m.feedReconnects.Inc() }

func (m *Metrics) NotifyFailure(sender string) {
	m.notifyFailures.WithLabelValues(sender).Inc()
}

func (m *Metrics) NotifyThrottled() { m.notifyThrottled.Inc() }
