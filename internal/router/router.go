// Package router turns client intents into session manager calls and fans
// the results out to the participants and to the configured event sinks.
package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/park285/Cheese-PvP-server/internal/adapter/chesspresenter"
	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
)

// Notifier delivers an envelope to whichever connection currently speaks for
// identity. Delivery is best effort; false means nobody is listening.
type Notifier interface {
	Send(identity string, env chessdto.Envelope) bool
}

// EventSink receives every envelope broadcast for a session.
type EventSink interface {
	Publish(ctx context.Context, sessionID string, env chessdto.Envelope) error
}

// Forgetter is implemented by sinks that index sessions and must drop a
// session once the manager has removed it.
type Forgetter interface {
	Forget(ctx context.Context, sessionID string) error
}

var (
	ErrMalformedIntent = errf("malformed intent")
	ErrNotBound        = errf("connection is not bound to a session")
)

const sessionStripes = 64

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

type Router struct {
	mgr    *pvpchess.Manager
	notify Notifier
	pres   *chesspresenter.Presenter
	sinks  []EventSink

	mu       sync.RWMutex
	bindings map[string]string // identity -> session id

	// stripes serialize apply-then-deliver per session so every participant
	// sees a session's envelopes in the order the manager produced them.
	stripes [sessionStripes]sync.Mutex
}

type Option func(*Router)

func WithSinks(sinks ...EventSink) Option {
	return func(r *Router) {
		for _, s := range sinks {
			if s != nil {
				r.sinks = append(r.sinks, s)
			}
		}
	}
}

func WithPresenter(p *chesspresenter.Presenter) Option {
	return func(r *Router) {
		if p != nil {
			r.pres = p
		}
	}
}

func New(mgr *pvpchess.Manager, notify Notifier, opts ...Option) *Router {
	r := &Router{
		mgr:      mgr,
		notify:   notify,
		pres:     chesspresenter.NewPresenter(nil),
		bindings: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Binding returns the session identity is currently bound to.
func (r *Router) Binding(identity string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bindings[identity]
	return id, ok
}

// Handle processes one intent from identity. Failures are reported to the
// originator before being returned.
func (r *Router) Handle(ctx context.Context, identity string, in chessdto.Intent) error {
	var err error
	switch in.Type {
	case chessdto.IntentCreateGame:
		err = r.createGame(ctx, identity)
	case chessdto.IntentJoinGame:
		err = r.joinGame(ctx, identity, in)
	case chessdto.IntentReconnect:
		err = r.reconnect(ctx, identity, in)
	case chessdto.IntentMakeMove:
		err = r.makeMove(ctx, identity, in)
	default:
		r.send(identity, chessdto.Envelope{Type: chessdto.EventError, Data: chessdto.Notice{
			Message: r.pres.Formatter().Text("error.unknown_intent", "Unknown request type", map[string]any{"Type": in.Type}),
			Code:    chessdto.CodeMalformed,
		}})
		err = ErrMalformedIntent
	}
	if err != nil {
		level := obslog.L().Debug
		if errors.Is(err, pvpchess.ErrInternal) {
			level = obslog.L().Error
		}
		level("router_intent_rejected",
			zap.String("intent", in.Type),
			zap.String("session_id", in.SessionID()),
			zap.Error(err),
		)
	}
	return err
}

func (r *Router) createGame(ctx context.Context, identity string) error {
	s, err := r.mgr.CreateSession(ctx)
	if err != nil {
		r.send(identity, r.pres.Failure(err, ""))
		return err
	}
	unlock := r.lockSession(s.ID)
	res, err := r.mgr.JoinSession(ctx, s.ID, identity)
	if err != nil {
		unlock()
		r.mgr.EndSession(s.ID)
		r.send(identity, r.pres.Failure(err, s.ID))
		return err
	}
	env := r.pres.GameCreated(res)
	r.send(identity, env)
	r.publish(ctx, s.ID, env)
	unlock()
	r.bind(ctx, identity, s.ID)
	return nil
}

func (r *Router) joinGame(ctx context.Context, identity string, in chessdto.Intent) error {
	id := in.SessionID()
	if id == "" {
		r.send(identity, r.pres.Notice(chessdto.EventError, "session.game_id_required", "Game ID is required", chessdto.CodeMalformed))
		return ErrMalformedIntent
	}
	unlock := r.lockSession(id)
	res, err := r.mgr.JoinSession(ctx, id, identity)
	if err != nil {
		unlock()
		r.send(identity, r.pres.Failure(err, id))
		return err
	}
	r.send(identity, r.pres.GameJoined(res, false))
	if !res.Rejoined {
		r.notifyOpponent(res.Session, identity, r.pres.OpponentJoined(res.Session))
	}
	if res.Started {
		r.publish(ctx, id, r.pres.OpponentJoined(res.Session))
	}
	unlock()
	r.bind(ctx, identity, id)
	return nil
}

func (r *Router) reconnect(ctx context.Context, identity string, in chessdto.Intent) error {
	id := in.SessionID()
	if id == "" {
		r.send(identity, r.pres.Notice(chessdto.EventError, "session.reconnect_id_required", "Game ID is required for reconnection", chessdto.CodeMalformed))
		return ErrMalformedIntent
	}
	unlock := r.lockSession(id)
	res, err := r.mgr.Reconnect(ctx, id, identity)
	if err != nil {
		unlock()
		r.send(identity, r.pres.Failure(err, id))
		return err
	}
	r.send(identity, r.pres.GameJoined(res, true))
	if res.Rejoined {
		r.notifyOpponent(res.Session, identity, r.pres.OpponentReconnected())
	} else {
		r.notifyOpponent(res.Session, identity, r.pres.OpponentJoined(res.Session))
	}
	if res.Started {
		r.publish(ctx, id, r.pres.OpponentJoined(res.Session))
	}
	unlock()
	r.bind(ctx, identity, id)
	return nil
}

func (r *Router) makeMove(ctx context.Context, identity string, in chessdto.Intent) error {
	from, okFrom := chesspresenter.FromSquare(in.From)
	to, okTo := chesspresenter.FromSquare(in.To)
	if !okFrom || !okTo {
		r.send(identity, r.pres.InvalidMove("move.malformed", "Invalid move format", chessdto.CodeMalformed))
		return ErrMalformedIntent
	}
	mv := chess.Move{From: from, To: to}
	if p := strings.ToLower(strings.TrimSpace(in.Promotion)); p != "" {
		pt, ok := chess.ParsePieceType(p)
		if !ok {
			r.send(identity, r.pres.Failure(&chess.MoveError{Violation: chess.ViolationInvalidPromotion, Move: mv}, ""))
			return ErrMalformedIntent
		}
		mv.Promotion = pt
	}

	id, bound := r.Binding(identity)
	if !bound {
		r.send(identity, r.pres.InvalidMove("move.not_in_game", "Not in a game", chessdto.CodeNotInGame))
		return ErrNotBound
	}
	unlock := r.lockSession(id)
	defer unlock()
	res, err := r.mgr.ApplyMove(ctx, id, identity, mv)
	if err != nil {
		r.send(identity, r.pres.Failure(err, id))
		return err
	}

	env := r.pres.MoveMade(res)
	if res.Session.Status.Terminal() {
		env = r.pres.GameOver(res.Session)
	}
	r.broadcast(ctx, res.Session, env)
	return nil
}

// Disconnect releases identity's binding and tells the opponent when the game
// was still being played.
func (r *Router) Disconnect(ctx context.Context, identity string) {
	r.mu.Lock()
	id, ok := r.bindings[identity]
	delete(r.bindings, identity)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.leave(ctx, identity, id)
}

func (r *Router) leave(ctx context.Context, identity, id string) {
	unlock := r.lockSession(id)
	defer unlock()
	s, err := r.mgr.Disconnect(ctx, id, identity)
	if err != nil {
		if !errors.Is(err, pvpchess.ErrNotFound) {
			obslog.L().Warn("router_disconnect_error", zap.String("session_id", id), zap.Error(err))
		}
		return
	}
	if s.Status == pvpchess.StatusActive {
		r.notifyOpponent(s, identity, r.pres.OpponentDisconnected())
	}
}

// Sweep removes idle sessions from the manager, releases the bindings that
// still point at them and lets indexing sinks forget them.
func (r *Router) Sweep(ctx context.Context, idle time.Duration) []string {
	ids := r.mgr.Sweep(idle)
	if len(ids) == 0 {
		return nil
	}
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}
	r.mu.Lock()
	for identity, id := range r.bindings {
		if _, ok := gone[id]; ok {
			delete(r.bindings, identity)
		}
	}
	r.mu.Unlock()

	for _, sink := range r.sinks {
		f, ok := sink.(Forgetter)
		if !ok {
			continue
		}
		for _, id := range ids {
			if err := f.Forget(ctx, id); err != nil {
				obslog.L().Warn("router_forget_error", zap.String("session_id", id), zap.Error(err))
			}
		}
	}
	return ids
}

func (r *Router) lockSession(id string) func() {
	mu := &r.stripes[xxhash.Sum64String(id)%sessionStripes]
	mu.Lock()
	return mu.Unlock
}

// bind points identity at id, leaving any other session it was bound to.
func (r *Router) bind(ctx context.Context, identity, id string) {
	r.mu.Lock()
	prev, had := r.bindings[identity]
	r.bindings[identity] = id
	r.mu.Unlock()
	if had && prev != id {
		r.leave(ctx, identity, prev)
	}
}

func (r *Router) send(identity string, env chessdto.Envelope) {
	if r.notify == nil {
		return
	}
	r.notify.Send(identity, env)
}

func (r *Router) notifyOpponent(s *pvpchess.Session, identity string, env chessdto.Envelope) {
	if opp := s.OpponentOf(identity); opp != "" {
		r.send(opp, env)
	}
}

func (r *Router) broadcast(ctx context.Context, s *pvpchess.Session, env chessdto.Envelope) {
	for _, seat := range []pvpchess.Seat{s.White, s.Black} {
		if seat.Taken() {
			r.send(seat.ID, env)
		}
	}
	r.publish(ctx, s.ID, env)
}

func (r *Router) publish(ctx context.Context, sessionID string, env chessdto.Envelope) {
	for _, sink := range r.sinks {
		if err := sink.Publish(ctx, sessionID, env); err != nil {
			obslog.L().Warn("router_sink_error",
				zap.String("session_id", sessionID),
				zap.String("event", env.Type),
				zap.Error(err),
			)
		}
	}
}
