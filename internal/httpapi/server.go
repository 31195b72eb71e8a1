// Package httpapi serves the REST routes, the board image and the WebSocket
// upgrade endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/park285/Cheese-PvP-server/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/eventbus"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/internal/render"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
)

// EventLog is the read side of the Redis event mirror.
type EventLog interface {
	Recent(ctx context.Context, sessionID string, n int) ([]eventbus.Message, error)
	Active(ctx context.Context) ([]string, error)
}

type Deps struct {
	Manager   *pvpchess.Manager
	Presenter *chesspresenter.Presenter
	// WS handles GET /ws; nil leaves the route unregistered.
	WS http.Handler
	// Connections reports live WebSocket connections for /health.
	Connections func() int
	// Events serves the event history routes; nil leaves them unregistered.
	Events     EventLog
	CORSOrigin string
	StaticDir   string
}

type Server struct {
	d      Deps
	router *httprouter.Router
	static http.Handler
	now    func() time.Time
}

func New(d Deps) *Server {
	if d.Presenter == nil {
		d.Presenter = chesspresenter.NewPresenter(nil)
	}
	if d.CORSOrigin == "" {
		d.CORSOrigin = "*"
	}
	s := &Server{d: d, router: httprouter.New(), now: time.Now}
	if dir := strings.TrimSpace(d.StaticDir); dir != "" {
		s.static = http.FileServer(http.Dir(dir))
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/api/game/create", s.handleCreate)
	s.router.GET("/api/game/:gameId", s.handleGet)
	s.router.GET("/api/game/:gameId/legal-moves", s.handleLegalMoves)
	s.router.GET("/api/game/:gameId/board.png", s.handleBoard)
	if s.d.Events != nil {
		s.router.GET("/api/game/:gameId/events", s.handleEvents)
		s.router.GET("/api/events/active", s.handleActive)
	}
	if s.d.WS != nil {
		s.router.Handler(http.MethodGet, "/ws", s.d.WS)
	}
	s.router.NotFound = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, chessdto.DomainError{Code: chessdto.CodeRouteNotFound, Message: "Method not allowed"})
	})
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		obslog.L().Error("http_panic", zap.String("path", r.URL.Path), zap.Any("panic", v), zap.Stack("stack"))
		s.writeError(w, http.StatusInternalServerError, chessdto.DomainError{Code: chessdto.CodeInternal, Message: "Internal server error"})
	}
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	return s.cors(s.router)
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.d.CORSOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if s.d.CORSOrigin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conns := 0
	if s.d.Connections != nil {
		conns = s.d.Connections()
	}
	writeJSON(w, http.StatusOK, chessdto.HealthResponse{
		Status:      "ok",
		Message:     s.text("http.health", "Server is running", nil),
		Sessions:    s.d.Manager.Count(),
		Connections: conns,
		Timestamp:   s.now().UTC(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sess, err := s.d.Manager.CreateSession(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, chessdto.APIResponse{
		Success:   true,
		GameID:    sess.ID,
		GameState: chesspresenter.ToDTOState(sess),
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := strings.TrimSpace(ps.ByName("gameId"))
	sess, err := s.d.Manager.GetSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, id)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.APIResponse{
		Success:   true,
		GameID:    sess.ID,
		GameState: chesspresenter.ToDTOState(sess),
	})
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := strings.TrimSpace(ps.ByName("gameId"))
	from, ok := squareQuery(r)
	if !ok {
		s.writeError(w, http.StatusBadRequest, chessdto.DomainError{
			Code:    chessdto.CodeMalformed,
			Message: s.text("http.bad_square", "row and col must be integers between 0 and 7", nil),
		})
		return
	}
	moves, err := s.d.Manager.LegalMoves(r.Context(), id, from)
	if err != nil {
		s.fail(w, r, err, id)
		return
	}
	out := chessdto.LegalMovesResponse{Success: true, GameID: id, From: chesspresenter.ToCoord(from), Moves: make([]chessdto.Coord, 0, len(moves))}
	for _, m := range moves {
		out.Moves = append(out.Moves, chesspresenter.ToCoord(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := strings.TrimSpace(ps.ByName("gameId"))
	sess, err := s.d.Manager.GetSession(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, id)
		return
	}
	opts := render.Options{LastMove: sess.LastMove}
	if strings.EqualFold(r.URL.Query().Get("perspective"), string(chess.Black)) {
		opts.Perspective = chess.Black
	}
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, chessdto.DomainError{Code: chessdto.CodeMalformed, Message: "size must be an integer"})
			return
		}
		opts.SquareSize = n
	}
	if chess.IsKingInCheck(&sess.Board, sess.Turn) {
		opts.InCheck = sess.Turn
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	png, err := render.PNG(ctx, &sess.Board, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, chessdto.DomainError{Code: chessdto.CodeMalformed, Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := strings.TrimSpace(ps.ByName("gameId"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, chessdto.DomainError{Code: chessdto.CodeMalformed, Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	msgs, err := s.d.Events.Recent(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err, id)
		return
	}
	out := chessdto.EventsResponse{Success: true, GameID: id, Events: make([]chessdto.EventRecord, 0, len(msgs))}
	for _, m := range msgs {
		out.Events = append(out.Events, chessdto.EventRecord{Type: m.Type, Data: m.Data, At: m.At})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ids, err := s.d.Events.Active(r.Context())
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	sort.Strings(ids)
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, chessdto.ActiveSessionsResponse{Success: true, Sessions: ids})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	if s.static != nil && r.Method == http.MethodGet && !strings.HasPrefix(r.URL.Path, "/api/") {
		s.static.ServeHTTP(w, r)
		return
	}
	s.writeError(w, http.StatusNotFound, chessdto.DomainError{
		Code:    chessdto.CodeRouteNotFound,
		Message: s.text("http.route_not_found", "Route not found", nil),
	})
}

// fail maps a manager error onto an HTTP status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, id string) {
	status, de := http.StatusInternalServerError, chessdto.DomainError{
		Code:    chessdto.CodeInternal,
		Message: s.text("error.internal", "Failed to process request", map[string]any{"GameID": id}),
	}
	switch {
	case errors.Is(err, pvpchess.ErrNotFound):
		status = http.StatusNotFound
		de = chessdto.DomainError{Code: chessdto.CodeNotFound, Message: s.text("session.not_found", "Game not found", nil)}
	case errors.Is(err, pvpchess.ErrInvalidArgs):
		status = http.StatusBadRequest
		de = chessdto.DomainError{Code: chessdto.CodeMalformed, Message: s.text("http.bad_square", "row and col must be integers between 0 and 7", nil)}
	case errors.Is(err, pvpchess.ErrCapacity):
		status = http.StatusServiceUnavailable
		de = chessdto.DomainError{Code: chessdto.CodeCapacity, Message: s.text("session.capacity", "The server is not accepting new games right now", nil), Retryable: true}
	default:
		obslog.L().Error("http_request_failed", zap.String("path", r.URL.Path), zap.String("session_id", id), zap.Error(err))
	}
	s.writeError(w, status, de)
}

func (s *Server) writeError(w http.ResponseWriter, status int, de chessdto.DomainError) {
	writeJSON(w, status, chessdto.APIResponse{Success: false, Error: de.Error(), Code: de.Code, Retryable: de.Retryable})
}

func (s *Server) text(key, fallback string, data any) string {
	return s.d.Presenter.Formatter().Text(key, fallback, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Debug("http_write_failed", zap.Error(err))
	}
}

func squareQuery(r *http.Request) (chess.Position, bool) {
	q := r.URL.Query()
	row, err1 := strconv.Atoi(strings.TrimSpace(q.Get("row")))
	col, err2 := strconv.Atoi(strings.TrimSpace(q.Get("col")))
	if err1 != nil || err2 != nil {
		return chess.Position{}, false
	}
	p := chess.Pos(row, col)
	return p, p.InBounds()
}
