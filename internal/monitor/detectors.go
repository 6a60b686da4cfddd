package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// detectorFunc inspects one trade against current state and returns zero or
// more candidate alerts. Detectors only read state; the throttle decides
// admission.
type detectorFunc func(ev domain.TradeEvent, ls *launchState, ta *traderState, obs volumeObservation) []domain.Alert

type detector struct {
	name string
	run  detectorFunc
}

// runDetectors executes the full pipeline. A panicking detector is logged and
// counted; the remaining detectors still run. Caller holds the write lock.
func (m *Monitor) runDetectors(ctx context.Context, ev domain.TradeEvent, ls *launchState, ta *traderState, obs volumeObservation) []domain.Alert {
	checks := []detector{
		{"trade_size", m.checkTradeSize},
		{"velocity", m.checkVelocity},
		{"price_move", m.checkPriceMove},
		{"wash_trading", m.checkWashTrading},
		{"volume_anomaly", m.checkVolumeAnomaly},
		{"repeated_trades", m.checkRepeatedTrades},
	}

	var out []domain.Alert
	for _, d := range checks {
		out = append(out, m.safeDetect(ctx, d, ev, ls, ta, obs)...)
	}
	return out
}

func (m *Monitor) safeDetect(ctx context.Context, d detector, ev domain.TradeEvent, ls *launchState, ta *traderState, obs volumeObservation) (alerts []domain.Alert) {
	defer func() {
		if r := recover(); r != nil {
			alerts = nil
			m.metrics.DetectorPanic(d.name)
			m.logger.ErrorContext(ctx, "detector panicked",
				slog.String("detector", d.name),
				slog.String("launch_id", ev.LaunchID),
				slog.Any("panic", r),
			)
		}
	}()
	return d.run(ev, ls, ta, obs)
}

// checkTradeSize flags single trades at or above the large and whale
// thresholds. Whale takes precedence.
func (m *Monitor) checkTradeSize(ev domain.TradeEvent, _ *launchState, _ *traderState, _ volumeObservation) []domain.Alert {
	var (
		typ      domain.AlertType
		severity domain.Severity
		label    string
	)
	switch {
	case ev.SolAmount >= m.cfg.WhaleThreshold:
		typ, severity, label = domain.AlertWhaleTrade, domain.SeverityCritical, "whale"
	case ev.SolAmount >= m.cfg.LargeThreshold:
		typ, severity, label = domain.AlertLargeTrade, domain.SeverityWarning, "large"
	default:
		return nil
	}

	return []domain.Alert{{
		ID:       tradeAlertID(typ, ev.Signature),
		Type:     typ,
		Severity: severity,
		Message:  fmt.Sprintf("%s trade: %.2f SOL %s on launch %s", label, ev.SolAmount, ev.Side, ev.LaunchID),
		Data: map[string]any{
			"sol_amount": ev.SolAmount,
			"side":       string(ev.Side),
			"price":      ev.Price,
			"signature":  ev.Signature,
		},
		Timestamp: ev.Timestamp,
		LaunchID:  ev.LaunchID,
		Trader:    ev.Trader,
	}}
}

// checkVelocity covers both the per-launch and per-trader trade-rate limits
// over the velocity window.
func (m *Monitor) checkVelocity(ev domain.TradeEvent, ls *launchState, ta *traderState, _ volumeObservation) []domain.Alert {
	cutoff := m.now().Add(-m.cfg.VelocityWindow)

	var out []domain.Alert
	if n := countSince(ls.trades, cutoff); n > m.cfg.LaunchVelocityLimit {
		out = append(out, domain.Alert{
			ID:       entityAlertID(domain.AlertVelocitySpike, ev.LaunchID, ev.Timestamp),
			Type:     domain.AlertVelocitySpike,
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("high trade velocity: %d trades in %s on launch %s", n, m.cfg.VelocityWindow, ev.LaunchID),
			Data: map[string]any{
				"trade_count":    n,
				"limit":          m.cfg.LaunchVelocityLimit,
				"window_seconds": m.cfg.VelocityWindow.Seconds(),
			},
			Timestamp: ev.Timestamp,
			LaunchID:  ev.LaunchID,
		})
	}

	if m.traderAlertDue(ta, domain.AlertAddressVelocity) {
		if n := countSince(ta.trades, cutoff); n > m.cfg.AddressVelocityLimit {
			out = append(out, domain.Alert{
				ID:       entityAlertID(domain.AlertAddressVelocity, ev.Trader, ev.Timestamp),
				Type:     domain.AlertAddressVelocity,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("address velocity: %s made %d trades in %s on launch %s", ev.Trader, n, m.cfg.VelocityWindow, ev.LaunchID),
				Data: map[string]any{
					"trade_count":    n,
					"limit":          m.cfg.AddressVelocityLimit,
					"window_seconds": m.cfg.VelocityWindow.Seconds(),
				},
				Timestamp: ev.Timestamp,
				LaunchID:  ev.LaunchID,
				Trader:    ev.Trader,
			})
		}
	}
	return out
}

// checkPriceMove compares the earliest price sample in the window against the
// triggering trade's price. Needs at least two in-window samples and a
// non-zero reference price.
func (m *Monitor) checkPriceMove(ev domain.TradeEvent, ls *launchState, _ *traderState, _ volumeObservation) []domain.Alert {
	cutoff := m.now().Add(-m.cfg.PriceWindow)

	var (
		earliest pricePoint
		samples  int
	)
	for _, p := range ls.prices {
		if p.ts.Before(cutoff) {
			continue
		}
		if samples == 0 || p.ts.Before(earliest.ts) {
			earliest = p
		}
		samples++
	}
	if samples < 2 || earliest.price == 0 {
		return nil
	}

	changePct := (ev.Price - earliest.price) / earliest.price * 100
	if math.Abs(changePct) <= m.cfg.PriceChangePct {
		return nil
	}

	typ := domain.AlertPriceSurge
	verb := "surged"
	if changePct < 0 {
		typ = domain.AlertPriceDrop
		verb = "dropped"
	}
	return []domain.Alert{{
		ID:       entityAlertID(typ, ev.LaunchID, ev.Timestamp),
		Type:     typ,
		Severity: domain.SeverityCritical,
		Message:  fmt.Sprintf("price %s %.1f%% in %s on launch %s", verb, math.Abs(changePct), m.cfg.PriceWindow, ev.LaunchID),
		Data: map[string]any{
			"from_price":     earliest.price,
			"to_price":       ev.Price,
			"change_pct":     changePct,
			"window_seconds": m.cfg.PriceWindow.Seconds(),
		},
		Timestamp: ev.Timestamp,
		LaunchID:  ev.LaunchID,
	}}
}

// checkWashTrading scores the trader's recent buy/sell alternation. Each
// consecutive trade triple whose sides alternate counts as a round trip;
// triples overlap, so a single trade can contribute to several. The score is
// a heuristic, which the alert message states.
func (m *Monitor) checkWashTrading(ev domain.TradeEvent, _ *launchState, ta *traderState, _ volumeObservation) []domain.Alert {
	if !m.traderAlertDue(ta, domain.AlertWashTrading) {
		return nil
	}

	window := tradesSince(ta.trades, m.now().Add(-m.cfg.WashWindow))
	n := len(window)
	if n < m.cfg.WashMinTrades {
		return nil
	}

	roundTrips := 0
	for i := 2; i < n; i++ {
		if window[i-2].Side != window[i-1].Side && window[i-1].Side != window[i].Side {
			roundTrips++
		}
	}
	ratio := float64(roundTrips) / float64(n-2)
	if ratio < m.cfg.WashRatio {
		return nil
	}

	return []domain.Alert{{
		ID:       entityAlertID(domain.AlertWashTrading, ev.Trader, ev.Timestamp),
		Type:     domain.AlertWashTrading,
		Severity: domain.SeverityCritical,
		Message:  fmt.Sprintf("possible wash trading by %s: round-trip ratio %.2f over %d trades (heuristic)", ev.Trader, ratio, n),
		Data: map[string]any{
			"trade_count":    n,
			"round_trips":    roundTrips,
			"ratio":          ratio,
			"window_seconds": m.cfg.WashWindow.Seconds(),
		},
		Timestamp: ev.Timestamp,
		LaunchID:  ev.LaunchID,
		Trader:    ev.Trader,
	}}
}

// checkVolumeAnomaly compares the rolling window volume against the smoothed
// average as it stood before this trade. The very first observation for a
// launch seeds the average and never alerts.
func (m *Monitor) checkVolumeAnomaly(ev domain.TradeEvent, _ *launchState, _ *traderState, obs volumeObservation) []domain.Alert {
	if obs.first || obs.prevAverage <= 0 {
		return nil
	}

	ratio := obs.windowVolume / obs.prevAverage
	if ratio < m.cfg.VolumeMultiplier {
		return nil
	}

	return []domain.Alert{{
		ID:       entityAlertID(domain.AlertVolumeAnomaly, ev.LaunchID, ev.Timestamp),
		Type:     domain.AlertVolumeAnomaly,
		Severity: domain.SeverityWarning,
		Message:  fmt.Sprintf("volume anomaly on launch %s: %.2f SOL in window, %.1fx the smoothed average", ev.LaunchID, obs.windowVolume, ratio),
		Data: map[string]any{
			"window_volume":  obs.windowVolume,
			"average_volume": obs.prevAverage,
			"ratio":          ratio,
		},
		Timestamp: ev.Timestamp,
		LaunchID:  ev.LaunchID,
	}}
}

// checkRepeatedTrades flags a trader placing many near-identical-size trades
// in quick succession. The triggering trade counts toward the total.
func (m *Monitor) checkRepeatedTrades(ev domain.TradeEvent, _ *launchState, ta *traderState, _ volumeObservation) []domain.Alert {
	if !m.traderAlertDue(ta, domain.AlertRepeatedTrades) {
		return nil
	}

	cutoff := m.now().Add(-m.cfg.VelocityWindow)
	tolerance := ev.SolAmount * m.cfg.RepeatTolerancePct / 100

	count := 0
	for _, t := range ta.trades {
		if t.Timestamp.Before(cutoff) {
			continue
		}
		if math.Abs(t.SolAmount-ev.SolAmount) <= tolerance {
			count++
		}
	}
	if count < m.cfg.RepeatMinCount {
		return nil
	}

	return []domain.Alert{{
		ID:       entityAlertID(domain.AlertRepeatedTrades, ev.Trader, ev.Timestamp),
		Type:     domain.AlertRepeatedTrades,
		Severity: domain.SeverityWarning,
		Message:  fmt.Sprintf("repeated trades by %s: %d trades within %.0f%% of %.2f SOL in %s", ev.Trader, count, m.cfg.RepeatTolerancePct, ev.SolAmount, m.cfg.VelocityWindow),
		Data: map[string]any{
			"trade_count":   count,
			"sol_amount":    ev.SolAmount,
			"tolerance_pct": m.cfg.RepeatTolerancePct,
		},
		Timestamp: ev.Timestamp,
		LaunchID:  ev.LaunchID,
		Trader:    ev.Trader,
	}}
}

// traderAlertDue reports whether the per-trader cooldown for the given alert
// type has lapsed.
func (m *Monitor) traderAlertDue(ta *traderState, typ domain.AlertType) bool {
	last, ok := ta.lastAlert[typ]
	if !ok {
		return true
	}
	return m.now().Sub(last) >= m.cfg.AlertCooldown
}

// tradeAlertID derives a stable id for alerts caused by a single trade.
func tradeAlertID(typ domain.AlertType, signature string) string {
	if len(signature) > 16 {
		signature = signature[:16]
	}
	return fmt.Sprintf("%s-%s", typ, signature)
}

// entityAlertID derives a stable id for pattern alerts scoped to a launch or
// trader, keyed by the triggering trade's timestamp.
func entityAlertID(typ domain.AlertType, entity string, ts time.Time) string {
	return fmt.Sprintf("%s-%s-%d", typ, entity, ts.UnixMilli())
}
