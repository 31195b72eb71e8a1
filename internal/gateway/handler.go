package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/Cheese-PvP-server/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// IntentHandler is the session router as seen from a connection.
type IntentHandler interface {
	Handle(ctx context.Context, identity string, in chessdto.Intent) error
	Disconnect(ctx context.Context, identity string)
}

type Options struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	SendBuffer     int
	Presenter      *chesspresenter.Presenter
}

// Handler upgrades GET requests to WebSocket connections. The player
// identity is the "player" query parameter; a fresh one is minted when it
// is missing and announced in the connected envelope.
type Handler struct {
	hub     *Hub
	intents IntentHandler
	opts    Options
}

func NewHandler(hub *Hub, intents IntentHandler, opts Options) *Handler {
	if opts.PingInterval == 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.Presenter == nil {
		opts.Presenter = chesspresenter.NewPresenter(nil)
	}
	return &Handler{hub: hub, intents: intents, opts: opts}
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	ao := &websocket.AcceptOptions{CompressionMode: websocket.CompressionNoContextTakeover}
	for _, o := range h.opts.AllowedOrigins {
		if o == "*" {
			ao.InsecureSkipVerify = true
			return ao
		}
		ao.OriginPatterns = append(ao.OriginPatterns, o)
	}
	return ao
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := strings.TrimSpace(r.URL.Query().Get("player"))
	if len(identity) > maxIdentityLen {
		http.Error(w, "player token too long", http.StatusBadRequest)
		return
	}
	conn, err := websocket.Accept(w, r, h.acceptOptions())
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	minted := identity == ""
	if minted {
		identity = uuid.NewString()
	}
	c := newClient(uuid.NewString(), identity, conn, h.opts.SendBuffer)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if old := h.hub.register(c); old != nil {
		obslog.L().Info("ws_superseded", zap.String("conn_id", old.connID), zap.String("by", c.connID))
		old.close(websocket.StatusPolicyViolation, "superseded by a newer connection")
		h.intents.Disconnect(ctx, identity)
	}
	obslog.L().Info("ws_connect",
		zap.String("conn_id", c.connID),
		zap.Bool("minted_identity", minted),
		zap.String("remote", r.RemoteAddr),
	)

	go c.writeLoop(ctx, h.opts.WriteTimeout)
	go c.pingLoop(ctx, h.opts.PingInterval)
	c.enqueue(h.opts.Presenter.Connected(identity))

	h.readLoop(ctx, c)

	c.close(websocket.StatusNormalClosure, "")
	if h.hub.unregister(c) {
		h.intents.Disconnect(context.WithoutCancel(ctx), identity)
	}
	obslog.L().Info("ws_disconnect", zap.String("conn_id", c.connID))
}

func (h *Handler) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if !c.closed() && websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				obslog.L().Debug("ws_read_failed", zap.String("conn_id", c.connID), zap.Error(err))
			}
			return
		}
		var in chessdto.Intent
		if err := json.Unmarshal(data, &in); err != nil {
			c.enqueue(h.opts.Presenter.Notice(chessdto.EventError, "ws.malformed", "Invalid message format", chessdto.CodeMalformed))
			continue
		}
		// The router has already told the client what went wrong.
		_ = h.intents.Handle(ctx, c.identity, in)
	}
}
