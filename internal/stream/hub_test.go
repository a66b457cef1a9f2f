package stream_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/TalariManohar018/papertrade/internal/stream"
)

func dialHub(t *testing.T, h *stream.Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(h.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := stream.NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast("candle", map[string]any{"symbol": "NIFTY", "close": 22010.5})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg stream.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, "candle", msg.Type)

	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "NIFTY", data["symbol"])
	require.False(t, msg.Timestamp.IsZero())
}

func TestDeadClientRemoved(t *testing.T) {
	hub := stream.NewHub()
	go hub.Run()
	defer hub.Stop()

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		hub.Broadcast("ping", nil)
		return hub.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStopDisconnectsClients(t *testing.T) {
	hub := stream.NewHub()
	go hub.Run()

	conn := dialHub(t, hub)
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Stop()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 20*time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestBroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub := stream.NewHub()
	// No Run pump: the buffered channel absorbs messages, then drops.
	for i := 0; i < 1000; i++ {
		hub.Broadcast("tick", i)
	}
}
