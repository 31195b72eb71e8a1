// Package gateway accepts player WebSocket connections, feeds their intents
// to the session router and delivers the router's envelopes back to them.
package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	defaultSendBuffer   = 32
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 5 * time.Second
	pingTimeout         = 3 * time.Second
	readLimit           = 64 << 10
	maxIdentityLen      = 128
)

// Hub maps player identities to their current connection. At most one
// connection speaks for an identity; a newer one supersedes the older.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Send queues env for identity's connection.
func (h *Hub) Send(identity string, env chessdto.Envelope) bool {
	h.mu.RLock()
	c := h.clients[identity]
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.enqueue(env)
}

// Count returns the number of registered connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register installs c and returns the connection it replaced, if any.
func (h *Hub) register(c *client) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.clients[c.identity]
	h.clients[c.identity] = c
	return old
}

// unregister removes c unless it has already been superseded.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.clients[c.identity]; ok && cur == c {
		delete(h.clients, c.identity)
		return true
	}
	return false
}

// Shutdown closes every connection with StatusGoingAway.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	all := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.Unlock()
	for _, c := range all {
		c.close(websocket.StatusGoingAway, "server shutting down")
	}
	obslog.L().Info("ws_hub_shutdown", zap.Int("connections", len(all)))
}
