package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine implements the handler service interfaces over canned data.
type fakeEngine struct {
	alerts     []domain.Alert
	lastFilter domain.AlertFilter
	snapshots  []domain.LaunchSnapshot
	summary    domain.LaunchSummary
	summaryErr error
	points     []domain.VolumePoint
	pointsErr  error
	stats      domain.GlobalStats
}

func (f *fakeEngine) ListAlerts(filter domain.AlertFilter) []domain.Alert {
	f.lastFilter = filter
	return f.alerts
}

func (f *fakeEngine) ActiveLaunches() []domain.LaunchSnapshot { return f.snapshots }

func (f *fakeEngine) LaunchSummary(string) (domain.LaunchSummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeEngine) VolumeHistory(string) ([]domain.VolumePoint, error) {
	return f.points, f.pointsErr
}

func (f *fakeEngine) GlobalStats() domain.GlobalStats { return f.stats }

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestGetStatus(t *testing.T) {
	engine := &fakeEngine{stats: domain.GlobalStats{ActiveLaunches: 3, TotalAlerts: 17}}
	h := NewStatusHandler("sim", time.Now().Add(-90*time.Second), engine)

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "sim", body["mode"])
	assert.Equal(t, float64(3), body["active_launches"])
	assert.Equal(t, float64(17), body["total_alerts"])
	assert.GreaterOrEqual(t, body["uptime_seconds"], float64(89))
}

func TestListAlerts(t *testing.T) {
	engine := &fakeEngine{alerts: []domain.Alert{
		{ID: "a1", Type: domain.AlertWhaleTrade, Severity: domain.SeverityCritical},
		{ID: "a2", Type: domain.AlertLargeTrade, Severity: domain.SeverityWarning},
	}}
	h := NewAlertHandler(engine, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts?launch_id=l1&trader=w1&type=whale_trade&severity=critical&limit=7", nil)
	rec := httptest.NewRecorder()
	h.ListAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, domain.AlertFilter{
		LaunchID: "l1",
		Trader:   "w1",
		Type:     domain.AlertWhaleTrade,
		Severity: domain.SeverityCritical,
		Limit:    7,
	}, engine.lastFilter)

	var body listAlertsResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 7, body.Limit)
	require.Len(t, body.Alerts, 2)
	assert.Equal(t, "a1", body.Alerts[0].ID)
}

func TestListAlertsLimitDefaults(t *testing.T) {
	cases := map[string]struct {
		query string
		want  int
	}{
		"default":       {"", 50},
		"explicit":      {"?limit=10", 10},
		"capped at 500": {"?limit=9999", 500},
		"junk ignored":  {"?limit=abc", 50},
		"zero ignored":  {"?limit=0", 50},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			engine := &fakeEngine{}
			h := NewAlertHandler(engine, testLogger())

			rec := httptest.NewRecorder()
			h.ListAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts"+tc.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.want, engine.lastFilter.Limit)
		})
	}
}

func TestListLaunches(t *testing.T) {
	engine := &fakeEngine{snapshots: []domain.LaunchSnapshot{
		{LaunchID: "l1", TradeCount: 5, Volume: 12.5},
		{LaunchID: "l2", TradeCount: 2, Volume: 1.0},
	}}
	h := NewLaunchHandler(engine, testLogger())

	rec := httptest.NewRecorder()
	h.ListLaunches(rec, httptest.NewRequest(http.MethodGet, "/api/launches", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body listLaunchesResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "l1", body.Launches[0].LaunchID)
}

func newLaunchRequest(path, id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.SetPathValue("id", id)
	return req
}

func TestGetSummary(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		engine := &fakeEngine{summary: domain.LaunchSummary{
			LaunchID:   "l1",
			TradeCount: 4,
			Volume:     9.5,
		}}
		h := NewLaunchHandler(engine, testLogger())

		rec := httptest.NewRecorder()
		h.GetSummary(rec, newLaunchRequest("/api/launches/l1/summary", "l1"))

		require.Equal(t, http.StatusOK, rec.Code)
		var body domain.LaunchSummary
		decodeBody(t, rec, &body)
		assert.Equal(t, "l1", body.LaunchID)
		assert.Equal(t, 4, body.TradeCount)
	})

	t.Run("unknown launch", func(t *testing.T) {
		engine := &fakeEngine{summaryErr: domain.ErrNotFound}
		h := NewLaunchHandler(engine, testLogger())

		rec := httptest.NewRecorder()
		h.GetSummary(rec, newLaunchRequest("/api/launches/nope/summary", "nope"))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		h := NewLaunchHandler(&fakeEngine{}, testLogger())

		rec := httptest.NewRecorder()
		h.GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/launches//summary", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetVolumeHistory(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		engine := &fakeEngine{points: []domain.VolumePoint{
			{Volume: 1.5, Timestamp: now},
			{Volume: 2.5, Timestamp: now.Add(time.Minute)},
		}}
		h := NewLaunchHandler(engine, testLogger())

		rec := httptest.NewRecorder()
		h.GetVolumeHistory(rec, newLaunchRequest("/api/launches/l1/volume", "l1"))

		require.Equal(t, http.StatusOK, rec.Code)
		var body volumeHistoryResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "l1", body.LaunchID)
		require.Len(t, body.Points, 2)
		assert.Equal(t, 2.5, body.Points[1].Volume)
	})

	t.Run("unknown launch", func(t *testing.T) {
		engine := &fakeEngine{pointsErr: domain.ErrNotFound}
		h := NewLaunchHandler(engine, testLogger())

		rec := httptest.NewRecorder()
		h.GetVolumeHistory(rec, newLaunchRequest("/api/launches/nope/volume", "nope"))

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetStats(t *testing.T) {
	engine := &fakeEngine{stats: domain.GlobalStats{
		ActiveLaunches: 2,
		TotalAlerts:    5,
		AlertsBySeverity: map[domain.Severity]int{
			domain.SeverityCritical: 3,
			domain.SeverityWarning:  2,
		},
		AlertsByType: map[domain.AlertType]int{
			domain.AlertWhaleTrade:  3,
			domain.AlertWashTrading: 2,
		},
	}}
	h := NewStatsHandler(engine)

	rec := httptest.NewRecorder()
	h.GetStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.GlobalStats
	decodeBody(t, rec, &body)
	assert.Equal(t, 2, body.ActiveLaunches)
	assert.Equal(t, 3, body.AlertsBySeverity[domain.SeverityCritical])
	assert.Equal(t, 2, body.AlertsByType[domain.AlertWashTrading])
}
