package handler

import (
	"net/http"
	"time"
)

// StatusHandler serves the runtime status (mode, uptime, engine counters)
// for the dashboard.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	stats     StatsService
}

// NewStatusHandler creates a StatusHandler for the given run mode.
func NewStatusHandler(mode string, startedAt time.Time, stats StatsService) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: startedAt,
		stats:     stats,
	}
}

// GetStatus responds with the current run mode and engine counters.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	gs := h.stats.GlobalStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":            h.mode,
		"uptime_seconds":  uptime,
		"active_launches": gs.ActiveLaunches,
		"total_alerts":    gs.TotalAlerts,
	})
}
