// Package notify delivers admitted alerts to external channels (Telegram,
// Discord). Alerts pass a severity floor, an optional type allowlist, and a
// global outbound rate limit before being formatted and dispatched; a failing
// sender never blocks the remaining ones.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/launchrlabs/launchwatch/internal/domain"
	"github.com/launchrlabs/launchwatch/internal/telemetry"
)

// Notification is a formatted, channel-agnostic message. Senders decide how
// to render the severity (emoji, embed color) for their medium.
type Notification struct {
	Title    string
	Body     string
	Severity domain.Severity
}

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers one notification.
	Send(ctx context.Context, n Notification) error
	// Name returns a short identifier for the sender (e.g. "telegram").
	Name() string
}

// Config controls which alerts reach the senders.
type Config struct {
	// MinSeverity is the lowest severity forwarded. Empty forwards everything.
	MinSeverity domain.Severity
	// Events is an allowlist of alert types. Empty allows all types.
	Events []string
	// RatePerMinute caps outbound notifications. 0 disables the cap.
	RatePerMinute int
}

// Notifier filters alerts and fans them out to its senders.
type Notifier struct {
	senders     []Sender
	minSeverity domain.Severity
	events      map[domain.AlertType]bool
	limiter     *rate.Limiter
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// NewNotifier creates a Notifier delivering to the given senders.
func NewNotifier(senders []Sender, cfg Config, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.AlertType]bool, len(cfg.Events))
	for _, e := range cfg.Events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[domain.AlertType(e)] = true
		}
	}

	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), cfg.RatePerMinute)
	}

	return &Notifier{
		senders:     senders,
		minSeverity: cfg.MinSeverity,
		events:      allowed,
		limiter:     limiter,
		logger:      logger.With(slog.String("component", "notifier")),
		metrics:     telemetry.NewNop(),
	}
}

// WithMetrics attaches instrumentation. Call before the first Notify.
func (n *Notifier) WithMetrics(m *telemetry.Metrics) *Notifier {
	if m != nil {
		n.metrics = m
	}
	return n
}

// Notify forwards one alert to every sender, provided it clears the severity
// floor, the type allowlist, and the rate limit. Filtered and throttled
// alerts return nil.
func (n *Notifier) Notify(ctx context.Context, a domain.Alert) error {
	if len(n.senders) == 0 {
		return nil
	}
	if a.Severity.Rank() < n.minSeverity.Rank() {
		n.logger.DebugContext(ctx, "alert below severity floor",
			slog.String("alert_id", a.ID),
			slog.String("severity", string(a.Severity)),
		)
		return nil
	}
	if len(n.events) > 0 && !n.events[a.Type] {
		n.logger.DebugContext(ctx, "alert type filtered out",
			slog.String("type", string(a.Type)),
		)
		return nil
	}
	if n.limiter != nil && !n.limiter.Allow() {
		n.metrics.NotifyThrottled()
		n.logger.DebugContext(ctx, "notification throttled",
			slog.String("alert_id", a.ID),
		)
		return nil
	}

	return n.dispatch(ctx, formatAlert(a))
}

// Announce sends an operational message to all senders, bypassing the alert
// filters but not the rate limit.
func (n *Notifier) Announce(ctx context.Context, title, body string) error {
	if len(n.senders) == 0 {
		return nil
	}
	if n.limiter != nil && !n.limiter.Allow() {
		n.metrics.NotifyThrottled()
		return nil
	}
	return n.dispatch(ctx, Notification{Title: title, Body: body, Severity: domain.SeverityInfo})
}

// dispatch delivers to every sender. Errors are collected and returned as a
// combined error; one failing sender does not prevent delivery to the rest.
func (n *Notifier) dispatch(ctx context.Context, msg Notification) error {
	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, msg); err != nil {
			n.metrics.NotifyFailure(s.Name())
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", msg.Title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// formatAlert renders an alert into a channel-agnostic notification.
func formatAlert(a domain.Alert) Notification {
	title := fmt.Sprintf("[%s] %s",
		strings.ToUpper(string(a.Severity)),
		strings.ReplaceAll(string(a.Type), "_", " "),
	)

	var b strings.Builder
	b.WriteString(a.Message)
	if a.LaunchID != "" {
		fmt.Fprintf(&b, "\nlaunch: %s", a.LaunchID)
	}
	if a.Trader != "" {
		fmt.Fprintf(&b, "\ntrader: %s", a.Trader)
	}
	fmt.Fprintf(&b, "\nat: %s", a.Timestamp.UTC().Format(time.RFC3339))

	return Notification{Title: title, Body: b.String(), Severity: a.Severity}
}
