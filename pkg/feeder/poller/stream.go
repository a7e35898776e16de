package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-twap/pkg/feeder/price"
	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/metrics"
	"github.com/StrathCole/oracle-twap/pkg/twap"
	"github.com/StrathCole/oracle-twap/pkg/version"
)

const (
	minReconnectWait = time.Second
	maxReconnectWait = 60 * time.Second
	pongWait         = 60 * time.Second
	writeWait        = 10 * time.Second
)

// Stream follows the price_update feed of an oracle-go WebSocket server.
// Updates for a symbol arriving closer together than the minimum sample
// spacing are dropped.
type Stream struct {
	sampler
	url    string
	dialer *websocket.Dialer

	// lastSubmit is only touched by the read loop.
	lastSubmit map[string]time.Time
}

// upstreamMessage is the oracle-go server's broadcast format.
type upstreamMessage struct {
	Type   string `json:"type"`
	Prices []struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	} `json:"prices"`
}

// NewStream creates a stream consumer for url (ws:// or wss://).
func NewStream(url string, submitter Submitter, logger *logging.Logger) *Stream {
	return &Stream{
		sampler:    sampler{feed: submitter, logger: logger, now: time.Now},
		url:        url,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		lastSubmit: make(map[string]time.Time),
	}
}

// Run connects and consumes updates until ctx is cancelled, reconnecting
// with exponential backoff.
func (s *Stream) Run(ctx context.Context) error {
	s.logger.Info("Starting price stream", "url", s.url)

	wait := minReconnectWait
	for {
		connected, err := s.consume(ctx)
		if ctx.Err() != nil {
			s.logger.Info("Price stream stopped")
			return nil
		}
		if connected {
			wait = minReconnectWait
		}
		metrics.RecordPollError("stream")
		s.logger.Warn("Price stream disconnected, reconnecting", "error", err, "wait", wait.String())

		select {
		case <-ctx.Done():
			s.logger.Info("Price stream stopped")
			return nil
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxReconnectWait {
			wait = maxReconnectWait
		}
	}
}

// consume runs one connection. It reports whether the dial succeeded.
func (s *Stream) consume(ctx context.Context) (bool, error) {
	header := http.Header{"User-Agent": []string{version.AgentString()}}
	conn, _, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	s.logger.Info("Price stream connected", "url", s.url)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handle(data)
	}
}

func (s *Stream) handle(data []byte) {
	var msg upstreamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("Invalid upstream message", "error", err)
		return
	}
	if msg.Type != "price_update" {
		return
	}

	now := s.now()
	prices := make([]price.Price, 0, len(msg.Prices))
	for _, p := range msg.Prices {
		if last, ok := s.lastSubmit[p.Symbol]; ok && now.Sub(last) < twap.MinSampleInterval*time.Second {
			continue
		}
		s.lastSubmit[p.Symbol] = now
		prices = append(prices, price.Price{Symbol: p.Symbol, Price: p.Price})
	}
	if len(prices) == 0 {
		return
	}

	updated := s.submit(prices, now)
	s.logger.Debug("Stream update applied", "prices", len(prices), "updated", updated)
}
