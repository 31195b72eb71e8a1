package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// client is one accepted WebSocket. Outbound envelopes go through send and
// are written by a single goroutine, so per-connection order is the order
// in which they were queued.
type client struct {
	connID   string
	identity string
	conn     *websocket.Conn
	send     chan chessdto.Envelope

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(connID, identity string, conn *websocket.Conn, buffer int) *client {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &client{
		connID:   connID,
		identity: identity,
		conn:     conn,
		send:     make(chan chessdto.Envelope, buffer),
		done:     make(chan struct{}),
	}
}

// enqueue never blocks. A client whose buffer is full is dropped.
func (c *client) enqueue(env chessdto.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- env:
		return true
	case <-c.done:
		return false
	default:
		obslog.L().Warn("ws_send_overflow",
			zap.String("conn_id", c.connID),
			zap.String("event", env.Type),
			zap.Int("buffer", cap(c.send)),
		)
		c.close(websocket.StatusPolicyViolation, "send buffer overflow")
		return false
	}
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// close is idempotent and does not wait for the closing handshake.
func (c *client) close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		go func() { _ = c.conn.Close(code, reason) }()
	})
}

func (c *client) writeLoop(ctx context.Context, timeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case env := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := wsjson.Write(wctx, c.conn, env)
			cancel()
			if err != nil {
				obslog.L().Debug("ws_write_failed", zap.String("conn_id", c.connID), zap.Error(err))
				c.close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

func (c *client) pingLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				obslog.L().Info("ws_ping_timeout", zap.String("conn_id", c.connID), zap.Error(err))
				c.close(websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}
