package handler

import (
	"net/http"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// StatsService exposes the engine-wide counters.
type StatsService interface {
	GlobalStats() domain.GlobalStats
}

// StatsHandler serves the aggregate statistics endpoint.
type StatsHandler struct {
	stats StatsService
}

// NewStatsHandler creates a StatsHandler with the given service.
func NewStatsHandler(stats StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// GetStats returns monitor-wide alert and launch counters.
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GlobalStats())
}
