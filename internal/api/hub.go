package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiki830621/customer-dna/internal/contracts"
	"github.com/kiki830621/customer-dna/pkg/logger"
)

// =============================================================================
// Run event feed (websocket)
// =============================================================================

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 16
)

// Hub broadcasts run lifecycle events to connected websocket clients
// ⭐ SSOT: 런 이벤트 브로드캐스트는 여기서만 (contracts.RunPublisher 구현)
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	logger   *logger.Logger
}

type client struct {
	conn *websocket.Conn
	send chan contracts.RunEvent
}

// NewHub creates a new run event hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 대시보드는 같은 오리진이 아닐 수 있음 (내부망 전제)
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: log.WithComponent("api.hub"),
	}
}

// Publish fans the event out to every connected client.
// Slow clients are dropped rather than blocking the run.
func (h *Hub) Publish(event contracts.RunEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			// Buffer full: disconnect lazily on the next write failure
			h.logger.Warn("Dropping run event for slow websocket client")
		}
	}
}

// ServeWS upgrades the connection and streams run events
// GET /api/ws/runs
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan contracts.RunEvent, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.WithField("clients", count).Debug("Websocket client connected")

	go h.writePump(c)
	go h.readPump(c)
}

// writePump pushes events and pings until the client goes away
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.drop(c)
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the feed is one-way
func (h *Hub) readPump(c *client) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop removes a client; safe to call twice
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.conn.Close()

	h.logger.WithField("clients", len(h.clients)).Debug("Websocket client disconnected")
}

// ClientCount reports the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
