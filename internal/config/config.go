// Package config defines the top-level configuration for launchwatch and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LAUNCHWATCH_* environment variables.
type Config struct {
	Monitor  MonitorConfig `toml:"monitor"`
	Feed     FeedConfig    `toml:"feed"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Notify   NotifyConfig  `toml:"notify"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// MonitorConfig holds detector thresholds and sliding-window sizes. SOL
// thresholds are absolute amounts; percentage fields are plain percents
// (20 means 20%).
type MonitorConfig struct {
	WhaleThresholdSol    float64 `toml:"whale_threshold_sol"`
	LargeThresholdSol    float64 `toml:"large_threshold_sol"`
	LaunchVelocityLimit  int     `toml:"launch_velocity_limit"`
	AddressVelocityLimit int     `toml:"address_velocity_limit"`
	PriceChangePct       float64 `toml:"price_change_pct"`
	WashMinTrades        int     `toml:"wash_min_trades"`
	WashRatio            float64 `toml:"wash_ratio"`
	VolumeMultiplier     float64 `toml:"volume_multiplier"`
	RepeatMinCount       int     `toml:"repeat_min_count"`
	RepeatTolerancePct   float64 `toml:"repeat_tolerance_pct"`

	VolumeWindow   duration `toml:"volume_window"`
	WashWindow     duration `toml:"wash_window"`
	VelocityWindow duration `toml:"velocity_window"`
	PriceWindow    duration `toml:"price_window"`
	AlertCooldown  duration `toml:"alert_cooldown"`
	SweepInterval  duration `toml:"sweep_interval"`
	AlertRetention duration `toml:"alert_retention"`

	// AlertBuffer is the capacity of the engine's outbound alert channel.
	AlertBuffer int `toml:"alert_buffer"`
}

// FeedConfig holds trade-source parameters for the three feed modes.
type FeedConfig struct {
	// WsURL is the indexer websocket endpoint; required in live mode.
	WsURL        string   `toml:"ws_url"`
	ReconnectMin duration `toml:"reconnect_min"`
	ReconnectMax duration `toml:"reconnect_max"`

	// ReplayPath points at a JSONL trade capture; required in replay mode.
	ReplayPath string `toml:"replay_path"`
	// ReplaySpeed scales replay pacing; 0 replays as fast as possible.
	ReplaySpeed float64 `toml:"replay_speed"`

	SimInterval duration `toml:"sim_interval"`
	SimLaunches int      `toml:"sim_launches"`
	SimTraders  int      `toml:"sim_traders"`
	// SimSeed fixes the simulator RNG; 0 seeds from the clock.
	SimSeed int64 `toml:"sim_seed"`
}

// RedisConfig holds Redis connection parameters for the alert bus.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	DialTimeout  duration `toml:"dial_timeout"`
	ReadTimeout  duration `toml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout"`
	// StreamMaxLen caps the alerts stream via approximate XADD MAXLEN trimming.
	StreamMaxLen int64 `toml:"stream_max_len"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	// APIKey guards the query API when set; empty leaves it open.
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit caps requests per client per rate_window; 0 disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials and filters.
type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
	// MinSeverity drops alerts below this level; empty forwards everything.
	MinSeverity string `toml:"min_severity"`
	// Events whitelists alert types to forward; empty forwards everything.
	Events []string `toml:"events"`
	// RatePerMinute caps outbound messages across all senders; 0 means no cap.
	RatePerMinute     int    `toml:"rate_per_minute"`
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Monitor: MonitorConfig{
			WhaleThresholdSol:    50,
			LargeThresholdSol:    10,
			LaunchVelocityLimit:  20,
			AddressVelocityLimit: 10,
			PriceChangePct:       20,
			WashMinTrades:        5,
			WashRatio:            0.8,
			VolumeMultiplier:     5,
			RepeatMinCount:       5,
			RepeatTolerancePct:   5,
			VolumeWindow:         duration{5 * time.Minute},
			WashWindow:           duration{5 * time.Minute},
			VelocityWindow:       duration{time.Minute},
			PriceWindow:          duration{time.Minute},
			AlertCooldown:        duration{time.Minute},
			SweepInterval:        duration{time.Minute},
			AlertRetention:       duration{time.Hour},
			AlertBuffer:          256,
		},
		Feed: FeedConfig{
			ReconnectMin: duration{time.Second},
			ReconnectMax: duration{30 * time.Second},
			ReplaySpeed:  0,
			SimInterval:  duration{200 * time.Millisecond},
			SimLaunches:  8,
			SimTraders:   32,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			DB:           0,
			DialTimeout:  duration{5 * time.Second},
			ReadTimeout:  duration{3 * time.Second},
			WriteTimeout: duration{3 * time.Second},
			StreamMaxLen: 10_000,
		},
		Server: ServerConfig{
			Enabled:     true,
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Enabled:       false,
			MinSeverity:   "warning",
			Events:        []string{},
			RatePerMinute: 20,
		},
		Mode:     "sim",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"live":   true,
	"replay": true,
	"sim":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validSeverities enumerates the accepted values for notify.min_severity.
var validSeverities = map[string]bool{
	"":         true,
	"info":     true,
	"warning":  true,
	"critical": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, replay, sim)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Monitor
	if c.Monitor.WhaleThresholdSol <= 0 {
		errs = append(errs, "monitor: whale_threshold_sol must be > 0")
	}
	if c.Monitor.LargeThresholdSol <= 0 {
		errs = append(errs, "monitor: large_threshold_sol must be > 0")
	}
	if c.Monitor.LaunchVelocityLimit < 1 {
		errs = append(errs, "monitor: launch_velocity_limit must be >= 1")
	}
	if c.Monitor.AddressVelocityLimit < 1 {
		errs = append(errs, "monitor: address_velocity_limit must be >= 1")
	}
	if c.Monitor.WashRatio <= 0 || c.Monitor.WashRatio > 1 {
		errs = append(errs, fmt.Sprintf("monitor: wash_ratio must be in (0, 1], got %g", c.Monitor.WashRatio))
	}
	if c.Monitor.WashMinTrades < 3 {
		errs = append(errs, "monitor: wash_min_trades must be >= 3")
	}
	for name, d := range map[string]duration{
		"volume_window":   c.Monitor.VolumeWindow,
		"wash_window":     c.Monitor.WashWindow,
		"velocity_window": c.Monitor.VelocityWindow,
		"price_window":    c.Monitor.PriceWindow,
		"alert_cooldown":  c.Monitor.AlertCooldown,
		"sweep_interval":  c.Monitor.SweepInterval,
		"alert_retention": c.Monitor.AlertRetention,
	} {
		if d.Duration <= 0 {
			errs = append(errs, fmt.Sprintf("monitor: %s must be > 0", name))
		}
	}

	// Each mode needs its feed source configured.
	switch strings.ToLower(c.Mode) {
	case "live":
		if c.Feed.WsURL == "" {
			errs = append(errs, "feed: ws_url is required for live mode")
		}
	case "replay":
		if c.Feed.ReplayPath == "" {
			errs = append(errs, "feed: replay_path is required for replay mode")
		}
	}
	if c.Feed.ReplaySpeed < 0 {
		errs = append(errs, "feed: replay_speed must be >= 0")
	}
	if c.Feed.SimInterval.Duration <= 0 {
		errs = append(errs, "feed: sim_interval must be > 0")
	}
	if c.Feed.ReconnectMin.Duration <= 0 || c.Feed.ReconnectMax.Duration < c.Feed.ReconnectMin.Duration {
		errs = append(errs, "feed: reconnect_min must be > 0 and <= reconnect_max")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.StreamMaxLen < 1 {
			errs = append(errs, "redis: stream_max_len must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
		if c.Server.RateLimit > 0 && !c.Redis.Enabled {
			errs = append(errs, "server: rate_limit requires redis to be enabled")
		}
	}

	// Notify
	if !validSeverities[strings.ToLower(c.Notify.MinSeverity)] {
		errs = append(errs, fmt.Sprintf("notify: unknown min_severity %q (valid: info, warning, critical)", c.Notify.MinSeverity))
	}
	if c.Notify.Enabled && c.Notify.TelegramToken == "" && c.Notify.DiscordWebhookURL == "" {
		errs = append(errs, "notify: enabled but neither telegram_token nor discord_webhook_url is set")
	}
	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
	}
	if c.Notify.RatePerMinute < 0 {
		errs = append(errs, "notify: rate_per_minute must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
