package handler

import (
	"log/slog"
	"net/http"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// AlertService defines what the alert handler needs from the engine. It is
// declared locally so the handler package does not depend on the concrete
// monitor implementation.
type AlertService interface {
	ListAlerts(filter domain.AlertFilter) []domain.Alert
}

// AlertHandler serves the alert log endpoints.
type AlertHandler struct {
	alerts AlertService
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler with the given service and logger.
func NewAlertHandler(alerts AlertService, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger,
	}
}

// listAlertsResponse wraps the list endpoint output with metadata.
type listAlertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
	Count  int            `json:"count"`
	Limit  int            `json:"limit"`
}

// ListAlerts returns recent alerts, newest first, optionally filtered.
// GET /api/alerts?launch_id=&trader=&type=&severity=&limit=50
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter := parseAlertFilter(r)

	alerts := h.alerts.ListAlerts(filter)
	writeJSON(w, http.StatusOK, listAlertsResponse{
		Alerts: alerts,
		Count:  len(alerts),
		Limit:  filter.Limit,
	})
}
