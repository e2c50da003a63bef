// Package api declares the ops HTTP surface: liveness, metrics, stats,
// and the live cycle feed.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	service "github.com/sentrylab/vigil/internal/app"
	"github.com/sentrylab/vigil/pkg/logger"
	"github.com/sentrylab/vigil/pkg/metrics"
)

// Default hub configuration constants.
const (
	broadcastBuffer = 32
)

// Hub fans per-cycle summaries out to connected websocket clients. A
// slow client is disconnected rather than allowed to block the loop.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]bool
	broadcast chan service.CycleSummary
	upgrader  websocket.Upgrader
	logger    logger.Logger
}

// NewHub creates a live feed hub.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan service.CycleSummary, broadcastBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Get().Named("live"),
	}
}

// Run delivers broadcasts until ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case summary := <-h.broadcast:
			h.send(ctx, summary)
		}
	}
}

// BroadcastCycle queues a summary for delivery. It never blocks the
// cycle loop; when the buffer is full the summary is dropped.
func (h *Hub) BroadcastCycle(summary service.CycleSummary) {
	select {
	case h.broadcast <- summary:
	default:
	}
}

// HandleLive upgrades GET /ws requests into feed subscriptions.
func (h *Hub) HandleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateLiveClients(count)
	h.logger.Info(r.Context(), "live client connected", logger.Int("clients", count))

	// Reader goroutine: discard inbound messages, detect disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

// send writes one summary to every client, dropping the ones that fail.
func (h *Hub) send(ctx context.Context, summary service.CycleSummary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		h.logger.Error(ctx, "failed to encode cycle summary", logger.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(c)
		}
	}
}

// drop removes and closes a client connection.
func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateLiveClients(count)
}

// closeAll disconnects every client on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	for c := range h.clients {
		_ = c.Close()
		delete(h.clients, c)
	}
	h.mu.Unlock()
	metrics.UpdateLiveClients(0)
}
