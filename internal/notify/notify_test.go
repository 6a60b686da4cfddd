package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSender records everything it is asked to deliver.
type fakeSender struct {
	name string
	err  error
	sent []Notification
}

func (f *fakeSender) Send(_ context.Context, n Notification) error {
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testAlert(typ domain.AlertType, sev domain.Severity) domain.Alert {
	return domain.Alert{
		ID:        "whale_trade-sig001",
		Type:      typ,
		Severity:  sev,
		Message:   "whale trade: 75.00 SOL buy on launch-1",
		LaunchID:  "launch-1",
		Trader:    "wallet-a",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifierSeverityFloor(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{MinSeverity: domain.SeverityWarning}, testLogger())

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, testAlert(domain.AlertLargeTrade, domain.SeverityInfo)))
	require.NoError(t, n.Notify(ctx, testAlert(domain.AlertLargeTrade, domain.SeverityWarning)))
	require.NoError(t, n.Notify(ctx, testAlert(domain.AlertWhaleTrade, domain.SeverityCritical)))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, domain.SeverityWarning, sender.sent[0].Severity)
	assert.Equal(t, domain.SeverityCritical, sender.sent[1].Severity)
}

func TestNotifierEmptyFloorForwardsEverything(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{}, testLogger())

	require.NoError(t, n.Notify(context.Background(), testAlert(domain.AlertLargeTrade, domain.SeverityInfo)))
	assert.Len(t, sender.sent, 1)
}

func TestNotifierEventFilter(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{Events: []string{"whale_trade", " price_surge "}}, testLogger())

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, testAlert(domain.AlertWhaleTrade, domain.SeverityCritical)))
	require.NoError(t, n.Notify(ctx, testAlert(domain.AlertWashTrading, domain.SeverityCritical)))
	require.NoError(t, n.Notify(ctx, testAlert(domain.AlertPriceSurge, domain.SeverityCritical)))

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[0].Title, "whale trade")
	assert.Contains(t, sender.sent[1].Title, "price surge")
}

func TestNotifierRateLimit(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{RatePerMinute: 2}, testLogger())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, n.Notify(ctx, testAlert(domain.AlertWhaleTrade, domain.SeverityCritical)))
	}

	// Burst of 2, then the remaining three are throttled silently.
	assert.Len(t, sender.sent, 2)
}

func TestNotifierSenderIsolation(t *testing.T) {
	broken := &fakeSender{name: "broken", err: errors.New("boom")}
	healthy := &fakeSender{name: "healthy"}
	n := NewNotifier([]Sender{broken, healthy}, Config{}, testLogger())

	err := n.Notify(context.Background(), testAlert(domain.AlertWhaleTrade, domain.SeverityCritical))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	assert.Len(t, broken.sent, 1)
	assert.Len(t, healthy.sent, 1)
}

func TestNotifierNoSenders(t *testing.T) {
	n := NewNotifier(nil, Config{}, testLogger())
	require.NoError(t, n.Notify(context.Background(), testAlert(domain.AlertWhaleTrade, domain.SeverityCritical)))
}

func TestAnnounceBypassesAlertFilters(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, Config{
		MinSeverity: domain.SeverityCritical,
		Events:      []string{"whale_trade"},
	}, testLogger())

	require.NoError(t, n.Announce(context.Background(), "launchwatch started", "mode: sim"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "launchwatch started", sender.sent[0].Title)
	assert.Equal(t, domain.SeverityInfo, sender.sent[0].Severity)
}

func TestFormatAlert(t *testing.T) {
	n := formatAlert(testAlert(domain.AlertWhaleTrade, domain.SeverityCritical))

	assert.Equal(t, "[CRITICAL] whale trade", n.Title)
	assert.Contains(t, n.Body, "whale trade: 75.00 SOL buy on launch-1")
	assert.Contains(t, n.Body, "launch: launch-1")
	assert.Contains(t, n.Body, "trader: wallet-a")
	assert.Contains(t, n.Body, "2025-06-01T12:00:00Z")
}

func TestFormatAlertOmitsEmptyScopes(t *testing.T) {
	a := testAlert(domain.AlertVelocitySpike, domain.SeverityWarning)
	a.Trader = ""

	n := formatAlert(a)
	assert.NotContains(t, n.Body, "trader:")
	assert.Contains(t, n.Body, "launch: launch-1")
}

func TestTelegramSender(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewTelegramSender("token123", "chat456")
	s.apiBase = server.URL

	err := s.Send(context.Background(), Notification{
		Title:    "[CRITICAL] whale trade",
		Body:     "big buy",
		Severity: domain.SeverityCritical,
	})
	require.NoError(t, err)

	assert.Equal(t, "/bottoken123/sendMessage", gotPath)
	assert.Equal(t, "chat456", gotBody["chat_id"])
	assert.Equal(t, "Markdown", gotBody["parse_mode"])
	assert.True(t, strings.HasPrefix(gotBody["text"], "🚨"), "text should carry the severity emoji: %q", gotBody["text"])
	assert.Contains(t, gotBody["text"], "*[CRITICAL] whale trade*")
}

func TestTelegramSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false}`, http.StatusBadRequest)
	}))
	defer server.Close()

	s := NewTelegramSender("token", "chat")
	s.apiBase = server.URL

	err := s.Send(context.Background(), Notification{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestDiscordSender(t *testing.T) {
	var got discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	s := NewDiscordSender(server.URL)
	err := s.Send(context.Background(), Notification{
		Title:    "[WARNING] velocity spike",
		Body:     "42 trades in 60s",
		Severity: domain.SeverityWarning,
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "[WARNING] velocity spike", got.Embeds[0].Title)
	assert.Equal(t, "42 trades in 60s", got.Embeds[0].Description)
	assert.Equal(t, discordOrange, got.Embeds[0].Color)
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := NewDiscordSender(server.URL)
	err := s.Send(context.Background(), Notification{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
