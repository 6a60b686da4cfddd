package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sim", cfg.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Monitor.VolumeWindow.Duration)
	assert.Equal(t, time.Minute, cfg.Monitor.AlertCooldown.Duration)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Notify.Enabled)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "live"
log_level = "debug"

[monitor]
whale_threshold_sol = 75.0
volume_window = "10m"
alert_cooldown = "90s"

[feed]
ws_url = "wss://indexer.example.com/ws"

[server]
port = 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "live", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 75.0, cfg.Monitor.WhaleThresholdSol)
	assert.Equal(t, 10*time.Minute, cfg.Monitor.VolumeWindow.Duration)
	assert.Equal(t, 90*time.Second, cfg.Monitor.AlertCooldown.Duration)
	assert.Equal(t, "wss://indexer.example.com/ws", cfg.Feed.WsURL)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, 0.8, cfg.Monitor.WashRatio)
	assert.Equal(t, 10.0, cfg.Monitor.LargeThresholdSol)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
[monitor]
volume_window = "not-a-duration"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
mode = "sim"

[redis]
addr = "redis-from-file:6379"
`)

	t.Setenv("LAUNCHWATCH_MODE", "replay")
	t.Setenv("LAUNCHWATCH_FEED_REPLAY_PATH", "/var/data/trades.jsonl")
	t.Setenv("LAUNCHWATCH_REDIS_ADDR", "redis-from-env:6379")
	t.Setenv("LAUNCHWATCH_MONITOR_ALERT_COOLDOWN", "2m")
	t.Setenv("LAUNCHWATCH_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "replay", cfg.Mode)
	assert.Equal(t, "/var/data/trades.jsonl", cfg.Feed.ReplayPath)
	assert.Equal(t, "redis-from-env:6379", cfg.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Monitor.AlertCooldown.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Monitor.WashRatio = 1.5
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "bogus"`)
	assert.Contains(t, err.Error(), "wash_ratio must be in (0, 1]")
	assert.Contains(t, err.Error(), "port must be 1-65535")
}

func TestValidateModeSourceRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "live"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed: ws_url is required for live mode")

	cfg = Defaults()
	cfg.Mode = "replay"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed: replay_path is required for replay mode")
}

func TestValidateRateLimitNeedsRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Server.RateLimit = 100

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit requires redis")

	cfg.Redis.Enabled = true
	require.NoError(t, cfg.Validate())
}

func TestValidateNotifyNeedsASender(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither telegram_token nor discord_webhook_url")

	cfg.Notify.TelegramToken = "123:abc"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram_chat_id is required")

	cfg.Notify.TelegramChatID = "-100200300"
	require.NoError(t, cfg.Validate())
}
