package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/StrathCole/oracle-twap/pkg/logging"
	"github.com/StrathCole/oracle-twap/pkg/server/feed"
)

// WebSocketServer streams TWAP updates to connected clients.
type WebSocketServer struct {
	addr     string
	logger   *logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*WebSocketClient]bool

	updates chan []feed.Event
}

var _ feed.Subscriber = (*WebSocketServer)(nil)

// WebSocketClient represents a connected WebSocket client.
type WebSocketClient struct {
	conn            *websocket.Conn
	send            chan []byte
	server          *WebSocketServer
	subscribedAll   bool
	subscribedPairs map[string]bool
	mu              sync.RWMutex
}

// WebSocketMessage represents a client message.
type WebSocketMessage struct {
	Type    string   `json:"type"`    // "subscribe", "unsubscribe", "ping"
	Symbols []string `json:"symbols"` // List of symbols to subscribe to
}

// UpdateMessage is sent to clients after every applied sample.
type UpdateMessage struct {
	Type      string       `json:"type"`      // "twap_update"
	Timestamp string       `json:"timestamp"` // ISO 8601 timestamp
	Updates   []UpdateData `json:"updates"`
}

// UpdateData is one timeframe of one entry.
type UpdateData struct {
	Entry     int    `json:"entry"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Value     string `json:"value"`
	Sequence  uint64 `json:"sequence"`
	Timestamp uint64 `json:"unix_timestamp"`
	Coverage  uint32 `json:"coverage"`
	Valid     bool   `json:"valid"`
}

// NewWebSocketServer creates a new WebSocket server.
func NewWebSocketServer(addr string, logger *logging.Logger) *WebSocketServer {
	return &WebSocketServer{
		addr:   addr,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*WebSocketClient]bool),
		updates: make(chan []feed.Event, 100),
	}
}

// Handler returns the /ws route.
func (s *WebSocketServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux
}

// Start serves WebSocket clients until ctx is cancelled.
func (s *WebSocketServer) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go s.Run(ctx)

	s.logger.Info("Starting WebSocket server", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeClients()
	return server.Shutdown(shutdownCtx)
}

// Run broadcasts published events until ctx is cancelled.
func (s *WebSocketServer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-s.updates:
			s.broadcast(events)
		}
	}
}

// Publish queues events for broadcast. It drops them if the queue stays
// full, so a slow client never blocks sample submission.
func (s *WebSocketServer) Publish(events []feed.Event) {
	select {
	case s.updates <- events:
	case <-time.After(100 * time.Millisecond):
		s.logger.Warn("Update channel full, dropping TWAP update")
	}
}

// handleWebSocket handles new WebSocket connections.
func (s *WebSocketServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := &WebSocketClient{
		conn:            conn,
		send:            make(chan []byte, 256),
		server:          s,
		subscribedAll:   true,
		subscribedPairs: make(map[string]bool),
	}

	s.registerClient(client)

	go client.writePump()
	go client.readPump()

	s.logger.Info("New WebSocket client connected", "remote", conn.RemoteAddr())
}

func (s *WebSocketServer) registerClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
}

func (s *WebSocketServer) unregisterClient(client *WebSocketClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		close(client.send)
	}
}

func (s *WebSocketServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		delete(s.clients, client)
		close(client.send)
	}
}

// broadcast sends events to every client subscribed to at least one of
// their symbols. Each client only receives the events it subscribed to.
func (s *WebSocketServer) broadcast(events []feed.Event) {
	if len(events) == 0 {
		return
	}

	all := make([]UpdateData, 0, len(events))
	for _, ev := range events {
		all = append(all, UpdateData{
			Entry:     ev.Entry,
			Symbol:    ev.Symbol,
			Timeframe: ev.Timeframe.String(),
			Value:     ev.Value.String(),
			Sequence:  ev.Sequence,
			Timestamp: ev.Timestamp,
			Coverage:  ev.Coverage,
			Valid:     ev.Valid,
		})
	}
	stamp := time.Now().Format(time.RFC3339)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.clients {
		updates := client.filter(all)
		if len(updates) == 0 {
			continue
		}
		data, err := json.Marshal(UpdateMessage{Type: "twap_update", Timestamp: stamp, Updates: updates})
		if err != nil {
			s.logger.Error("Failed to marshal TWAP update", "error", err)
			return
		}
		select {
		case client.send <- data:
		default:
			s.logger.Warn("Client send buffer full, skipping update")
		}
	}
}

// writePump sends messages to the WebSocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.server.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads messages from the WebSocket connection.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.server.unregisterClient(c)
		_ = c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.server.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// handleMessage processes client messages.
func (c *WebSocketClient) handleMessage(data []byte) {
	var msg WebSocketMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.server.logger.Warn("Invalid client message", "error", err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.subscribe(msg.Symbols)
		c.reply("subscribed")
	case "unsubscribe":
		c.unsubscribe(msg.Symbols)
		c.reply("unsubscribed")
	case "ping":
		c.reply("pong")
	default:
		c.server.logger.Warn("Unknown message type", "type", msg.Type)
	}
}

// subscribe subscribes to specific symbols. No symbols or "*" subscribes to all.
func (c *WebSocketClient) subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 || (len(symbols) == 1 && symbols[0] == "*") {
		c.subscribedAll = true
		c.subscribedPairs = make(map[string]bool)
	} else {
		c.subscribedAll = false
		for _, symbol := range symbols {
			c.subscribedPairs[feed.NormalizeSymbol(symbol)] = true
		}
	}

	c.server.logger.Debug("Client subscribed", "symbols", symbols)
}

// unsubscribe unsubscribes from specific symbols.
func (c *WebSocketClient) unsubscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(symbols) == 0 || (len(symbols) == 1 && symbols[0] == "*") {
		c.subscribedAll = false
		c.subscribedPairs = make(map[string]bool)
	} else {
		for _, symbol := range symbols {
			delete(c.subscribedPairs, feed.NormalizeSymbol(symbol))
		}
	}

	c.server.logger.Debug("Client unsubscribed", "symbols", symbols)
}

// filter returns the updates the client is subscribed to.
func (c *WebSocketClient) filter(updates []UpdateData) []UpdateData {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subscribedAll {
		return updates
	}
	var out []UpdateData
	for _, u := range updates {
		if c.subscribedPairs[u.Symbol] {
			out = append(out, u)
		}
	}
	return out
}

// reply sends a control message such as a pong. Clients already
// unregistered have a closed send channel and get nothing.
func (c *WebSocketClient) reply(kind string) {
	data, _ := json.Marshal(map[string]string{"type": kind})

	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if !c.server.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
