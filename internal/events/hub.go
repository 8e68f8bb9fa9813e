package events

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/siftal/erc20bank/internal/domain"
)

// HubConfig configures WebSocket connection behavior.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// SendBuffer is the per-connection outbound queue size. A connection
	// that falls this far behind is dropped rather than blocking Publish.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

// Hub is a Sink that broadcasts events to WebSocket subscribers
// (indexers, bidding UIs). Slow subscribers are disconnected; the engine
// never waits on them.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu    sync.Mutex
	conns map[*hubConn]struct{}
}

// hubConn is one subscriber connection with its outbound queue.
type hubConn struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewHub creates a new broadcast hub.
func NewHub(config HubConfig, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
		conns:  make(map[*hubConn]struct{}),
	}
}

// wireEvent is the JSON shape written to subscribers.
type wireEvent struct {
	Type      domain.EventType           `json:"type"`
	Timestamp int64                      `json:"timestamp"`
	Started   *domain.LiquidationStarted `json:"started,omitempty"`
	Stopped   *domain.LiquidationStopped `json:"stopped,omitempty"`
	Withdrew  *domain.Withdrew           `json:"withdrew,omitempty"`
}

// Publish broadcasts the event to all connected subscribers.
func (h *Hub) Publish(_ context.Context, e *domain.Event) {
	payload, err := json.Marshal(wireEvent{
		Type:      e.Type,
		Timestamp: e.Timestamp,
		Started:   e.Started,
		Stopped:   e.Stopped,
		Withdrew:  e.Withdrew,
	})
	if err != nil {
		h.logger.Printf("marshal event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		select {
		case c.send <- payload:
		default:
			// Subscriber too slow, drop it.
			h.dropLocked(c)
		}
	}
}

// ServeHTTP upgrades the request and subscribes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade: %v", err)
		return
	}

	c := &hubConn{
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.conns {
		h.dropLocked(c)
	}
}

// ConnCount returns the number of connected subscribers.
func (h *Hub) ConnCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// writeLoop drains the outbound queue and keeps the connection alive with
// ping frames.
func (h *Hub) writeLoop(c *hubConn) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()
	defer c.conn.Close()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// readLoop discards inbound frames and detects disconnects.
func (h *Hub) readLoop(c *hubConn) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *hubConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *hubConn) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	c.once.Do(func() { close(c.done) })
	c.conn.Close()
}

var _ Sink = (*Hub)(nil)
