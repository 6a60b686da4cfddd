package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// LaunchService defines the engine views the launch handler requires.
type LaunchService interface {
	ActiveLaunches() []domain.LaunchSnapshot
	LaunchSummary(launchID string) (domain.LaunchSummary, error)
	VolumeHistory(launchID string) ([]domain.VolumePoint, error)
}

// LaunchHandler serves per-launch HTTP endpoints.
type LaunchHandler struct {
	launches LaunchService
	logger   *slog.Logger
}

// NewLaunchHandler creates a LaunchHandler with the given service and logger.
func NewLaunchHandler(launches LaunchService, logger *slog.Logger) *LaunchHandler {
	return &LaunchHandler{
		launches: launches,
		logger:   logger,
	}
}

// listLaunchesResponse wraps the list endpoint output with metadata.
type listLaunchesResponse struct {
	Launches []domain.LaunchSnapshot `json:"launches"`
	Count    int                     `json:"count"`
}

// ListLaunches returns every tracked launch, busiest first.
// GET /api/launches
func (h *LaunchHandler) ListLaunches(w http.ResponseWriter, r *http.Request) {
	launches := h.launches.ActiveLaunches()
	writeJSON(w, http.StatusOK, listLaunchesResponse{
		Launches: launches,
		Count:    len(launches),
	})
}

// GetSummary returns the windowed activity summary for one launch.
// GET /api/launches/{id}/summary
func (h *LaunchHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing launch id")
		return
	}

	summary, err := h.launches.LaunchSummary(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "launch not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: launch summary failed",
			slog.String("launch_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to summarize launch")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// volumeHistoryResponse pairs the sampled series with its launch.
type volumeHistoryResponse struct {
	LaunchID string               `json:"launch_id"`
	Points   []domain.VolumePoint `json:"points"`
}

// GetVolumeHistory returns the sampled windowed-volume series for one launch.
// GET /api/launches/{id}/volume
func (h *LaunchHandler) GetVolumeHistory(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing launch id")
		return
	}

	points, err := h.launches.VolumeHistory(id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "launch not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: volume history failed",
			slog.String("launch_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load volume history")
		return
	}

	writeJSON(w, http.StatusOK, volumeHistoryResponse{
		LaunchID: id,
		Points:   points,
	})
}
