package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// summaryAlertLimit caps the recent alerts embedded in a launch summary.
const summaryAlertLimit = 10

// ListAlerts returns alerts matching the filter, newest first. A zero filter
// matches everything; Limit <= 0 means no cap. Returned alerts are copies and
// safe to retain.
func (m *Monitor) ListAlerts(filter domain.AlertFilter) []domain.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectAlerts(filter)
}

// collectAlerts walks the log newest first. Caller holds at least the read
// lock.
func (m *Monitor) collectAlerts(filter domain.AlertFilter) []domain.Alert {
	out := make([]domain.Alert, 0, min(len(m.alerts), 64))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if !filter.Matches(a) {
			continue
		}
		out = append(out, copyAlert(a))
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// LaunchSummary aggregates activity for one launch over the volume window.
// Reading a summary never mutates state: two back-to-back calls see identical
// results. Returns ErrNotFound for launches the monitor is not tracking.
func (m *Monitor) LaunchSummary(launchID string) (domain.LaunchSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ls, ok := m.launches[launchID]
	if !ok {
		return domain.LaunchSummary{}, fmt.Errorf("launch %s: %w", launchID, domain.ErrNotFound)
	}

	cutoff := m.now().Add(-m.cfg.VolumeWindow)

	var (
		tradeCount int
		volume     float64
		traders    = make(map[string]struct{})
	)
	for _, t := range ls.trades {
		if t.Timestamp.Before(cutoff) {
			continue
		}
		tradeCount++
		volume += t.SolAmount
		traders[t.Trader] = struct{}{}
	}

	return domain.LaunchSummary{
		LaunchID:       launchID,
		TradeCount:     tradeCount,
		Volume:         volume,
		UniqueTraders:  len(traders),
		PriceChangePct: priceChangePct(ls.prices, cutoff),
		RecentAlerts: m.collectAlerts(domain.AlertFilter{
			LaunchID: launchID,
			Limit:    summaryAlertLimit,
		}),
	}, nil
}

// priceChangePct computes the percent move from the earliest to the latest
// in-window sample. Fewer than two samples, or a zero reference price, yields
// zero.
func priceChangePct(pts []pricePoint, cutoff time.Time) float64 {
	var (
		earliest, latest pricePoint
		samples          int
	)
	for _, p := range pts {
		if p.ts.Before(cutoff) {
			continue
		}
		if samples == 0 {
			earliest, latest = p, p
		} else {
			if p.ts.Before(earliest.ts) {
				earliest = p
			}
			if !p.ts.Before(latest.ts) {
				latest = p
			}
		}
		samples++
	}
	if samples < 2 || earliest.price == 0 {
		return 0
	}
	return (latest.price - earliest.price) / earliest.price * 100
}

// VolumeHistory returns the sampled window-volume series for a launch, oldest
// first. Returns ErrNotFound for untracked launches.
func (m *Monitor) VolumeHistory(launchID string) ([]domain.VolumePoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ls, ok := m.launches[launchID]
	if !ok {
		return nil, fmt.Errorf("launch %s: %w", launchID, domain.ErrNotFound)
	}
	return append([]domain.VolumePoint(nil), ls.volumes...), nil
}

// ActiveLaunches snapshots every tracked launch, ordered by window volume
// descending with launch id as tiebreaker.
func (m *Monitor) ActiveLaunches() []domain.LaunchSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := m.now().Add(-m.cfg.VolumeWindow)
	out := make([]domain.LaunchSnapshot, 0, len(m.launches))
	for id, ls := range m.launches {
		snap := domain.LaunchSnapshot{LaunchID: id}
		traders := make(map[string]struct{})
		for _, t := range ls.trades {
			if t.Timestamp.Before(cutoff) {
				continue
			}
			snap.TradeCount++
			snap.Volume += t.SolAmount
			traders[t.Trader] = struct{}{}
		}
		snap.UniqueTraders = len(traders)
		if n := len(ls.prices); n > 0 {
			snap.LastPrice = ls.prices[n-1].price
		}
		if n := len(ls.trades); n > 0 {
			snap.LastTradeAt = ls.trades[n-1].Timestamp
		}
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].LaunchID < out[j].LaunchID
	})
	return out
}

// GlobalStats summarizes the whole engine: tracked launches and the retained
// alert log broken down by severity and type.
func (m *Monitor) GlobalStats() domain.GlobalStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := domain.GlobalStats{
		ActiveLaunches:   len(m.launches),
		TotalAlerts:      len(m.alerts),
		AlertsBySeverity: make(map[domain.Severity]int),
		AlertsByType:     make(map[domain.AlertType]int),
	}
	for _, a := range m.alerts {
		stats.AlertsBySeverity[a.Severity]++
		stats.AlertsByType[a.Type]++
	}
	return stats
}

func copyAlert(a domain.Alert) domain.Alert {
	if a.Data != nil {
		data := make(map[string]any, len(a.Data))
		for k, v := range a.Data {
			data[k] = v
		}
		a.Data = data
	}
	return a
}
