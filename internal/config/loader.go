package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LAUNCHWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known LAUNCHWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Monitor ──
	setFloat64(&cfg.Monitor.WhaleThresholdSol, "LAUNCHWATCH_MONITOR_WHALE_THRESHOLD_SOL")
	setFloat64(&cfg.Monitor.LargeThresholdSol, "LAUNCHWATCH_MONITOR_LARGE_THRESHOLD_SOL")
	setInt(&cfg.Monitor.LaunchVelocityLimit, "LAUNCHWATCH_MONITOR_LAUNCH_VELOCITY_LIMIT")
	setInt(&cfg.Monitor.AddressVelocityLimit, "LAUNCHWATCH_MONITOR_ADDRESS_VELOCITY_LIMIT")
	setFloat64(&cfg.Monitor.PriceChangePct, "LAUNCHWATCH_MONITOR_PRICE_CHANGE_PCT")
	setFloat64(&cfg.Monitor.VolumeMultiplier, "LAUNCHWATCH_MONITOR_VOLUME_MULTIPLIER")
	setDuration(&cfg.Monitor.AlertCooldown, "LAUNCHWATCH_MONITOR_ALERT_COOLDOWN")
	setDuration(&cfg.Monitor.SweepInterval, "LAUNCHWATCH_MONITOR_SWEEP_INTERVAL")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "LAUNCHWATCH_FEED_WS_URL")
	setStr(&cfg.Feed.ReplayPath, "LAUNCHWATCH_FEED_REPLAY_PATH")
	setFloat64(&cfg.Feed.ReplaySpeed, "LAUNCHWATCH_FEED_REPLAY_SPEED")
	setInt64(&cfg.Feed.SimSeed, "LAUNCHWATCH_FEED_SIM_SEED")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LAUNCHWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LAUNCHWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LAUNCHWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LAUNCHWATCH_REDIS_DB")
	setInt64(&cfg.Redis.StreamMaxLen, "LAUNCHWATCH_REDIS_STREAM_MAX_LEN")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "LAUNCHWATCH_SERVER_ENABLED")
	setStr(&cfg.Server.Host, "LAUNCHWATCH_SERVER_HOST")
	setInt(&cfg.Server.Port, "LAUNCHWATCH_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "LAUNCHWATCH_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "LAUNCHWATCH_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "LAUNCHWATCH_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "LAUNCHWATCH_SERVER_RATE_WINDOW")

	// ── Notify ──
	setBool(&cfg.Notify.Enabled, "LAUNCHWATCH_NOTIFY_ENABLED")
	setStr(&cfg.Notify.MinSeverity, "LAUNCHWATCH_NOTIFY_MIN_SEVERITY")
	setStringSlice(&cfg.Notify.Events, "LAUNCHWATCH_NOTIFY_EVENTS")
	setInt(&cfg.Notify.RatePerMinute, "LAUNCHWATCH_NOTIFY_RATE_PER_MINUTE")
	setStr(&cfg.Notify.TelegramToken, "LAUNCHWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LAUNCHWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LAUNCHWATCH_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "LAUNCHWATCH_MODE")
	setStr(&cfg.LogLevel, "LAUNCHWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
