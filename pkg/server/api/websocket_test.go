package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/wad"
)

func dialWS(t *testing.T) (*WebSocketServer, *websocket.Conn) {
	t.Helper()
	ws := NewWebSocketServer(":0", logging.NewNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ws.Run(ctx)

	srv := httptest.NewServer(ws.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return ws, conn
}

// roundTrip sends a control message and waits for its reply, which also
// guarantees the client is registered.
func roundTrip(t *testing.T, conn *websocket.Conn, msg WebSocketMessage, reply string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	var got map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, reply, got["type"])
}

func readUpdate(t *testing.T, conn *websocket.Conn) UpdateMessage {
	t.Helper()
	var msg UpdateMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_RelaysFeedEvents(t *testing.T) {
	backend := newBackend(t)
	ws, conn := dialWS(t)
	backend.Subscribe(ws)
	roundTrip(t, conn, WebSocketMessage{Type: "ping"}, "pong")

	_, err := backend.Submit(0, twap.Sample{Price: wad.Price{Value: 42}, UnixTimestamp: 1000, Sequence: 1})
	require.NoError(t, err)

	msg := readUpdate(t, conn)
	assert.Equal(t, "twap_update", msg.Type)
	require.Len(t, msg.Updates, 2)
	assert.Equal(t, UpdateData{
		Entry:     0,
		Symbol:    "LUNC/USD",
		Timeframe: "1h",
		Value:     "42",
		Sequence:  1,
		Timestamp: 1000,
		Coverage:  1,
		Valid:     false,
	}, msg.Updates[0])
	assert.Equal(t, 5, msg.Updates[1].Entry)
}

func TestWebSocket_SubscriptionFilters(t *testing.T) {
	backend := newBackend(t)
	ws, conn := dialWS(t)
	backend.Subscribe(ws)
	roundTrip(t, conn, WebSocketMessage{Type: "subscribe", Symbols: []string{"ustc/usdt"}}, "subscribed")

	_, err := backend.Submit(0, twap.Sample{Price: wad.Price{Value: 1}, UnixTimestamp: 1000, Sequence: 1})
	require.NoError(t, err)
	_, err = backend.Submit(1, twap.Sample{Price: wad.Price{Value: 2}, UnixTimestamp: 1000, Sequence: 1})
	require.NoError(t, err)

	msg := readUpdate(t, conn)
	require.Len(t, msg.Updates, 3)
	for _, u := range msg.Updates {
		assert.Equal(t, "USTC/USD", u.Symbol)
	}

	roundTrip(t, conn, WebSocketMessage{Type: "unsubscribe", Symbols: []string{"*"}}, "unsubscribed")
	_, err = backend.Submit(1, twap.Sample{Price: wad.Price{Value: 2}, UnixTimestamp: 2000, Sequence: 2})
	require.NoError(t, err)
	roundTrip(t, conn, WebSocketMessage{Type: "ping"}, "pong")
}
