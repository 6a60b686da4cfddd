package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchrlabs/launchwatch/internal/domain"
)

// fakeBus is an in-memory AlertBus for hub tests.
type fakeBus struct {
	mu    sync.Mutex
	chans map[string]chan []byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{chans: make(map[string]chan []byte)}
}

func (f *fakeBus) channel(name string) chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.chans[name]
	if !ok {
		ch = make(chan []byte, 16)
		f.chans[name] = ch
	}
	return ch
}

func (f *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	f.channel(channel) <- payload
	return nil
}

func (f *fakeBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	return f.channel(channel), nil
}

func (f *fakeBus) StreamAppend(context.Context, string, []byte) error { return nil }

func (f *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var fr frame
	require.NoError(t, json.Unmarshal(raw, &fr))
	return fr
}

func TestHubStatusSnapshotOnConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newFakeBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "SIM"})
	go hub.Run(ctx)

	conn := dialHub(t, hub)

	fr := readFrame(t, conn)
	assert.Equal(t, domain.ChannelStatus, fr.Channel)

	var status map[string]any
	require.NoError(t, json.Unmarshal(fr.Data, &status))
	assert.Equal(t, "sim", status["mode"])
	assert.Equal(t, true, status["ws_connected"])
}

func TestHubBroadcastsAlerts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newFakeBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "sim"})
	go hub.Run(ctx)

	conn := dialHub(t, hub)
	readFrame(t, conn) // status snapshot

	payload := []byte(`{"id":"whale_trade-sig1","type":"whale_trade","severity":"critical"}`)
	require.NoError(t, bus.Publish(ctx, domain.ChannelAlert, payload))

	fr := readFrame(t, conn)
	assert.Equal(t, domain.ChannelAlert, fr.Channel)
	assert.JSONEq(t, string(payload), string(fr.Data))
}

func TestHubUnsubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newFakeBus()
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Mode: "sim"})
	go hub.Run(ctx)

	conn := dialHub(t, hub)
	readFrame(t, conn) // status snapshot

	msg := `{"action":"unsubscribe","channels":["` + domain.ChannelAlert + `"]}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	// The unsubscribe is handled on the client's read pump; give it a moment
	// before publishing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, bus.Publish(ctx, domain.ChannelAlert, []byte(`{"id":"skipped"}`)))
	require.NoError(t, bus.Publish(ctx, domain.ChannelStatus, []byte(`{"note":"still here"}`)))

	fr := readFrame(t, conn)
	assert.Equal(t, domain.ChannelStatus, fr.Channel, "alert frame should have been filtered out")
}
