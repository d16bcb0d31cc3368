package status

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voteflow-backend/internal/logger"
)

const writeWait = 5 * time.Second

// Hub fans snapshots out to connected websocket clients.
type Hub struct {
	collector *Collector
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub accepts upgrades only from allowedOrigins. An empty list accepts
// any origin, including none; otherwise a missing Origin is refused.
func NewHub(c *Collector, allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		collector: c,
		clients:   make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || allowed["*"] {
					return true
				}
				return origin != "" && allowed[origin]
			},
		},
	}
}

// ServeWS upgrades the request, sends one snapshot straight away and keeps
// the client registered until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := logger.For("status")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("[Status] WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	snap := h.collector.Collect(r.Context())
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(snap); err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast collects a snapshot and writes it to every client, dropping
// those that fail.
func (h *Hub) Broadcast(ctx context.Context) {
	if h.Clients() == 0 {
		return
	}
	snap := h.collector.Collect(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(h.clients, conn)
	}
}
