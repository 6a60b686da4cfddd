package monitor

import (
	"time"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

type pricePoint struct {
	price float64
	ts    time.Time
}

// launchState holds everything tracked for one launch. Trades and prices are
// append-only in arrival order and pruned by the sweeper; arrival order may
// differ slightly from event-timestamp order.
type launchState struct {
	trades    []domain.TradeEvent
	prices    []pricePoint
	volumes   []domain.VolumePoint
	avgVolume float64
	avgSeeded bool
	traders   map[string]*traderState
}

// traderState tracks one trader's activity on one launch. lastAlert carries
// the per-type fine-grained cooldown consulted by trader-scoped detectors.
type traderState struct {
	trades    []domain.TradeEvent
	lastAlert map[domain.AlertType]time.Time
}

// volumeObservation is the snapshot handed to the volume detector: the
// rolling window volume and the smoothed average as it stood before this
// trade was folded in.
type volumeObservation struct {
	windowVolume float64
	prevAverage  float64
	first        bool
}

// record appends the trade to launch and trader state and advances the
// smoothed volume average. The returned observation reflects the average
// prior to the update, so the volume detector never compares the window
// against a baseline that already contains it. Caller holds the write lock.
func (m *Monitor) record(ev domain.TradeEvent) (*launchState, *traderState, volumeObservation) {
	ls, ok := m.launches[ev.LaunchID]
	if !ok {
		ls = &launchState{traders: make(map[string]*traderState)}
		m.launches[ev.LaunchID] = ls
	}
	ls.trades = append(ls.trades, ev)
	ls.prices = append(ls.prices, pricePoint{price: ev.Price, ts: ev.Timestamp})

	ta, ok := ls.traders[ev.Trader]
	if !ok {
		ta = &traderState{lastAlert: make(map[domain.AlertType]time.Time)}
		ls.traders[ev.Trader] = ta
	}
	ta.trades = append(ta.trades, ev)

	now := m.now()
	windowVol := windowVolume(ls.trades, now.Add(-m.cfg.VolumeWindow))

	obs := volumeObservation{
		windowVolume: windowVol,
		prevAverage:  ls.avgVolume,
		first:        !ls.avgSeeded,
	}
	if ls.avgSeeded {
		ls.avgVolume = volumeAlpha*windowVol + (1-volumeAlpha)*ls.avgVolume
	} else {
		ls.avgVolume = windowVol
		ls.avgSeeded = true
	}

	if len(ls.volumes) == 0 || now.Sub(ls.volumes[len(ls.volumes)-1].Timestamp) >= volumeSampleEvery {
		ls.volumes = append(ls.volumes, domain.VolumePoint{Volume: windowVol, Timestamp: now})
		ls.volumes = pruneVolumes(ls.volumes, now.Add(-volumeHistoryKeep))
	}

	return ls, ta, obs
}

// windowVolume sums SOL over trades at or after the cutoff.
func windowVolume(trades []domain.TradeEvent, cutoff time.Time) float64 {
	var total float64
	for _, t := range trades {
		if !t.Timestamp.Before(cutoff) {
			total += t.SolAmount
		}
	}
	return total
}

// countSince counts trades at or after the cutoff.
func countSince(trades []domain.TradeEvent, cutoff time.Time) int {
	n := 0
	for _, t := range trades {
		if !t.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// tradesSince returns the trades at or after the cutoff, preserving arrival
// order. Events can arrive slightly out of timestamp order, so this filters
// rather than slicing off a prefix.
func tradesSince(trades []domain.TradeEvent, cutoff time.Time) []domain.TradeEvent {
	out := make([]domain.TradeEvent, 0, len(trades))
	for _, t := range trades {
		if !t.Timestamp.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

func pruneTrades(trades []domain.TradeEvent, cutoff time.Time) []domain.TradeEvent {
	kept := trades[:0]
	for _, t := range trades {
		if !t.Timestamp.Before(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func prunePrices(pts []pricePoint, cutoff time.Time) []pricePoint {
	kept := pts[:0]
	for _, p := range pts {
		if !p.ts.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func pruneVolumes(pts []domain.VolumePoint, cutoff time.Time) []domain.VolumePoint {
	i := 0
	for i < len(pts) && pts[i].Timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return pts
	}
	return append(pts[:0], pts[i:]...)
}
