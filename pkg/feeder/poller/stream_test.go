package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/twap"
)

const update = `{"type":"price_update","timestamp":"2026-01-01T00:00:00Z","prices":[{"symbol":"LUNC/USD","price":"0.00008512"}]}`

func TestStream_HandleThrottlesPerSymbol(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("SubmitSymbol", "LUNC/USD", mock.Anything).Return(1, nil).Twice()

	s := NewStream("ws://unused", sub, logging.NewNoopLogger())
	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }

	s.handle([]byte(update))
	clock = clock.Add(10 * time.Second)
	s.handle([]byte(update))
	clock = clock.Add(twap.MinSampleInterval * time.Second)
	s.handle([]byte(update))

	sub.AssertExpectations(t)
	sub.AssertNumberOfCalls(t, "SubmitSymbol", 2)
}

func TestStream_HandleIgnoresOtherMessages(t *testing.T) {
	sub := new(mockSubmitter)
	s := NewStream("ws://unused", sub, logging.NewNoopLogger())

	s.handle([]byte(`{"type":"pong"}`))
	s.handle([]byte(`not json`))
	sub.AssertNotCalled(t, "SubmitSymbol", mock.Anything, mock.Anything)
}

func TestStream_RunConsumesUpstream(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(update))
		// Hold the connection until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	got := make(chan twap.Sample, 1)
	sub := new(mockSubmitter)
	sub.On("SubmitSymbol", "LUNC/USD", mock.Anything).Return(1, nil).Run(func(args mock.Arguments) {
		got <- args.Get(1).(twap.Sample)
	})

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), sub, logging.NewNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case sample := <-got:
		assert.Equal(t, uint64(85_120_000_000_000), sample.Price.Value)
		assert.Equal(t, uint64(18), sample.Price.Exp)
		assert.NotZero(t, sample.Sequence)
	case <-time.After(2 * time.Second):
		t.Fatal("no sample submitted")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop")
	}
}
