package domain

import "time"

// Severity ranks how urgently an alert should be surfaced.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for threshold comparisons. Unknown values rank below
// info so an empty floor lets everything through.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}

// AlertType identifies which detector produced an alert.
type AlertType string

const (
	AlertWhaleTrade      AlertType = "whale_trade"
	AlertLargeTrade      AlertType = "large_trade"
	AlertVelocitySpike   AlertType = "velocity_spike"
	AlertAddressVelocity AlertType = "address_velocity"
	AlertPriceSurge      AlertType = "price_surge"
	AlertPriceDrop       AlertType = "price_drop"
	AlertWashTrading     AlertType = "wash_trading"
	AlertVolumeAnomaly   AlertType = "volume_anomaly"
	AlertRepeatedTrades  AlertType = "repeated_trades"
)

// Alert is an immutable detection result. The ID is derived from the alert's
// cause (type + trade signature for trade-scoped alerts, type + entity +
// timestamp otherwise) so the same cause always yields the same id.
type Alert struct {
	ID        string         `json:"id"`
	Type      AlertType      `json:"type"`
	Severity  Severity       `json:"severity"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	LaunchID  string         `json:"launch_id,omitempty"`
	Trader    string         `json:"trader,omitempty"`
}

// AlertFilter narrows ListAlerts results. Zero values match everything.
type AlertFilter struct {
	LaunchID string
	Trader   string
	Type     AlertType
	Severity Severity
	Limit    int
}

// Matches reports whether the alert passes every set filter field.
func (f AlertFilter) Matches(a Alert) bool {
	if f.LaunchID != "" && a.LaunchID != f.LaunchID {
		return false
	}
	if f.Trader != "" && a.Trader != f.Trader {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Severity != "" && a.Severity != f.Severity {
		return false
	}
	return true
}

// LaunchSummary is a point-in-time view of one launch over the volume window.
// Summaries are pure reads; requesting one never mutates engine state.
type LaunchSummary struct {
	LaunchID       string  `json:"launch_id"`
	TradeCount     int     `json:"trade_count"`
	Volume         float64 `json:"volume"`
	UniqueTraders  int     `json:"unique_traders"`
	PriceChangePct float64 `json:"price_change_pct"`
	RecentAlerts   []Alert `json:"recent_alerts"`
}

// LaunchSnapshot is one row of the active-launch list view.
type LaunchSnapshot struct {
	LaunchID      string    `json:"launch_id"`
	TradeCount    int       `json:"trade_count"`
	Volume        float64   `json:"volume"`
	UniqueTraders int       `json:"unique_traders"`
	LastPrice     float64   `json:"last_price"`
	LastTradeAt   time.Time `json:"last_trade_at"`
}

// VolumePoint is one sampled entry of a launch's windowed-volume series.
type VolumePoint struct {
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// GlobalStats aggregates monitor-wide counters for the stats endpoint.
type GlobalStats struct {
	ActiveLaunches   int               `json:"active_launches"`
	TotalAlerts      int               `json:"total_alerts"`
	AlertsBySeverity map[Severity]int  `json:"alerts_by_severity"`
	AlertsByType     map[AlertType]int `json:"alerts_by_type"`
}
