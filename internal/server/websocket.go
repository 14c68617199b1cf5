package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/minima/internal/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 16
)

// Message types sent to live reload clients.
const (
	MessageReload = "reload"
	MessageError  = "error"
)

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Target    string    `json:"target,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks live reload clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
	logger  logging.Logger
}

// NewHub creates an empty hub.
func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast sends msg to every client. Clients whose buffer is full are
// dropped; their browser reconnects.
func (h *Hub) Broadcast(ctx context.Context, msg UpdateMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(ctx, err, "Failed to marshal message")
		data = []byte(`{"type":"reload"}`)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			delete(h.clients, c)
			close(c.send)
		}
	}
	h.logger.Debug(ctx, "Broadcast", "type", msg.Type, "clients", len(h.clients))
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.register(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	s.logger.Debug(r.Context(), "Client connected", "clients", s.hub.Count())

	// Reading is only needed to notice the browser going away.
	ctx := conn.CloseRead(r.Context())
	c.writePump(ctx)

	s.hub.unregister(c)
	conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Debug(r.Context(), "Client disconnected", "clients", s.hub.Count())
}

// checkOrigin accepts same-host origins and those of the allow list. A
// missing origin is rejected.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	return s.origins.ValidateOrigin(origin)
}

// originPatterns converts the allow list into the host patterns the
// websocket handshake checks.
func (s *Server) originPatterns() []string {
	patterns := make([]string, 0, len(s.origins))
	for _, origin := range s.origins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// writePump pumps messages to the websocket connection until ctx is done or
// the hub closes the send channel.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
