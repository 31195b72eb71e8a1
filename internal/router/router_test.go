package router

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
)

type recorder struct {
	mu  sync.Mutex
	got map[string][]chessdto.Envelope
}

func newRecorder() *recorder { return &recorder{got: make(map[string][]chessdto.Envelope)} }

func (r *recorder) Send(identity string, env chessdto.Envelope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got[identity] = append(r.got[identity], env)
	return true
}

func (r *recorder) types(identity string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got[identity]))
	for _, e := range r.got[identity] {
		out = append(out, e.Type)
	}
	return out
}

func (r *recorder) last(t *testing.T, identity string) chessdto.Envelope {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.got[identity]
	if len(list) == 0 {
		t.Fatalf("no envelopes for %s", identity)
	}
	return list[len(list)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.got = make(map[string][]chessdto.Envelope)
	r.mu.Unlock()
}

type sinkRecorder struct {
	mu        sync.Mutex
	events    []string
	forgotten []string
	fail      bool
}

func (s *sinkRecorder) Publish(_ context.Context, _ string, env chessdto.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, env.Type)
	if s.fail {
		return errors.New("sink down")
	}
	return nil
}

func (s *sinkRecorder) Forget(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, sessionID)
	return nil
}

func move(fr, fc, tr, tc int) chessdto.Intent {
	return chessdto.Intent{Type: chessdto.IntentMakeMove, From: chessdto.At(fr, fc), To: chessdto.At(tr, tc)}
}

func setup(t *testing.T) (*Router, *recorder, *sinkRecorder, string) {
	t.Helper()
	rec := newRecorder()
	sink := &sinkRecorder{}
	r := New(pvpchess.NewManager(), rec, WithSinks(sink))
	ctx := context.Background()
	if err := r.Handle(ctx, "alice", chessdto.Intent{Type: chessdto.IntentCreateGame}); err != nil {
		t.Fatalf("create: %v", err)
	}
	created := rec.last(t, "alice")
	if created.Type != chessdto.EventGameCreated {
		t.Fatalf("expected gameCreated, got %s", created.Type)
	}
	gc := created.Data.(chessdto.GameCreated)
	if gc.Color != "white" || gc.GameState.Status != "waiting" {
		t.Fatalf("unexpected gameCreated: %+v", gc)
	}
	if err := r.Handle(ctx, "bob", chessdto.Intent{Type: chessdto.IntentJoinGame, GameID: gc.GameID}); err != nil {
		t.Fatalf("join: %v", err)
	}
	return r, rec, sink, gc.GameID
}

func TestJoinNotifiesOpponent(t *testing.T) {
	_, rec, sink, _ := setup(t)
	joined := rec.last(t, "bob")
	if joined.Type != chessdto.EventGameJoined {
		t.Fatalf("bob got %s", joined.Type)
	}
	gj := joined.Data.(chessdto.GameJoined)
	if gj.Color != "black" || gj.Reconnected || gj.GameState.Status != "active" {
		t.Fatalf("gameJoined: %+v", gj)
	}
	if got := rec.last(t, "alice").Type; got != chessdto.EventOpponentJoined {
		t.Fatalf("alice got %s", got)
	}
	if len(sink.events) != 2 || sink.events[0] != chessdto.EventGameCreated || sink.events[1] != chessdto.EventOpponentJoined {
		t.Fatalf("sink events %v", sink.events)
	}
}

func TestReconnectFillingSecondSeatPublishesStart(t *testing.T) {
	rec := newRecorder()
	sink := &sinkRecorder{}
	r := New(pvpchess.NewManager(), rec, WithSinks(sink))
	ctx := context.Background()
	if err := r.Handle(ctx, "alice", chessdto.Intent{Type: chessdto.IntentCreateGame}); err != nil {
		t.Fatalf("create: %v", err)
	}
	id := rec.last(t, "alice").Data.(chessdto.GameCreated).GameID

	if err := r.Handle(ctx, "bob", chessdto.Intent{Type: chessdto.IntentReconnect, GameID: id}); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if got := rec.last(t, "alice").Type; got != chessdto.EventOpponentJoined {
		t.Fatalf("alice got %s", got)
	}
	if len(sink.events) != 2 || sink.events[1] != chessdto.EventOpponentJoined {
		t.Fatalf("sink events %v", sink.events)
	}
}

func TestSweepUnbindsAndForgets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := newRecorder()
	sink := &sinkRecorder{}
	r := New(pvpchess.NewManager(pvpchess.WithClock(func() time.Time { return now })), rec, WithSinks(sink))
	ctx := context.Background()
	if err := r.Handle(ctx, "alice", chessdto.Intent{Type: chessdto.IntentCreateGame}); err != nil {
		t.Fatalf("create: %v", err)
	}
	id := rec.last(t, "alice").Data.(chessdto.GameCreated).GameID
	if err := r.Handle(ctx, "bob", chessdto.Intent{Type: chessdto.IntentJoinGame, GameID: id}); err != nil {
		t.Fatalf("join: %v", err)
	}
	steps := []struct {
		who string
		in  chessdto.Intent
	}{
		{"alice", move(6, 5, 5, 5)},
		{"bob", move(1, 4, 3, 4)},
		{"alice", move(6, 6, 4, 6)},
		{"bob", move(0, 3, 4, 7)},
	}
	for _, st := range steps {
		if err := r.Handle(ctx, st.who, st.in); err != nil {
			t.Fatalf("%s: %v", st.who, err)
		}
	}

	if ids := r.Sweep(ctx, time.Hour); len(ids) != 0 {
		t.Fatalf("fresh game swept: %v", ids)
	}
	if len(sink.forgotten) != 0 {
		t.Fatalf("forgot too early: %v", sink.forgotten)
	}

	now = now.Add(2 * time.Hour)
	ids := r.Sweep(ctx, time.Hour)
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("swept %v", ids)
	}
	if len(sink.forgotten) != 1 || sink.forgotten[0] != id {
		t.Fatalf("forgotten %v", sink.forgotten)
	}
	for _, who := range []string{"alice", "bob"} {
		if _, bound := r.Binding(who); bound {
			t.Fatalf("%s still bound to a swept session", who)
		}
	}
}

func TestIdempotentJoinDoesNotRenotify(t *testing.T) {
	r, rec, _, id := setup(t)
	rec.reset()
	if err := r.Handle(context.Background(), "bob", chessdto.Intent{Type: chessdto.IntentJoinGame, GameID: id}); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if got := rec.types("alice"); len(got) != 0 {
		t.Fatalf("alice should not be notified again: %v", got)
	}
}

func TestMoveBroadcastsToBoth(t *testing.T) {
	r, rec, sink, _ := setup(t)
	rec.reset()
	if err := r.Handle(context.Background(), "alice", move(6, 4, 4, 4)); err != nil {
		t.Fatalf("move: %v", err)
	}
	for _, who := range []string{"alice", "bob"} {
		env := rec.last(t, who)
		if env.Type != chessdto.EventMoveMade {
			t.Fatalf("%s got %s", who, env.Type)
		}
		mm := env.Data.(chessdto.MoveMade)
		if mm.CurrentTurn != "black" || mm.Piece.Type != "pawn" || mm.To != (chessdto.Coord{Row: 4, Col: 4}) {
			t.Fatalf("moveMade: %+v", mm)
		}
	}
	if sink.events[len(sink.events)-1] != chessdto.EventMoveMade {
		t.Fatalf("sink events %v", sink.events)
	}
}

func TestRejectedMovesOnlyReachOriginator(t *testing.T) {
	r, rec, _, _ := setup(t)
	ctx := context.Background()
	rec.reset()

	err := r.Handle(ctx, "bob", move(1, 4, 3, 4))
	if !errors.Is(err, pvpchess.ErrWrongTurn) {
		t.Fatalf("expected ErrWrongTurn, got %v", err)
	}
	inv := rec.last(t, "bob").Data.(chessdto.InvalidMove)
	if inv.Code != chessdto.CodeWrongTurn || inv.Error != "Not your turn" {
		t.Fatalf("invalidMove: %+v", inv)
	}

	if err := r.Handle(ctx, "alice", move(6, 4, 3, 4)); err == nil {
		t.Fatalf("expected rule violation")
	}
	inv = rec.last(t, "alice").Data.(chessdto.InvalidMove)
	if inv.Code != "bad_pattern" || inv.Error != "Invalid move for this piece" {
		t.Fatalf("invalidMove: %+v", inv)
	}

	if got := rec.types("bob"); len(got) != 1 {
		t.Fatalf("bob should only see his own rejection: %v", got)
	}
}

func TestMalformedIntents(t *testing.T) {
	r, rec, _, _ := setup(t)
	ctx := context.Background()

	bad := chessdto.Intent{Type: chessdto.IntentMakeMove, From: &chessdto.Square{}, To: chessdto.At(4, 4)}
	if err := r.Handle(ctx, "alice", bad); !errors.Is(err, ErrMalformedIntent) {
		t.Fatalf("expected ErrMalformedIntent, got %v", err)
	}
	if got := rec.last(t, "alice"); got.Type != chessdto.EventInvalidMove {
		t.Fatalf("got %s", got.Type)
	}

	if err := r.Handle(ctx, "alice", chessdto.Intent{Type: "resign"}); !errors.Is(err, ErrMalformedIntent) {
		t.Fatalf("unknown intent: %v", err)
	}
	if got := rec.last(t, "alice"); got.Type != chessdto.EventError {
		t.Fatalf("got %s", got.Type)
	}

	if err := r.Handle(ctx, "carol", chessdto.Intent{Type: chessdto.IntentJoinGame}); !errors.Is(err, ErrMalformedIntent) {
		t.Fatalf("missing id: %v", err)
	}

	promo := move(6, 4, 4, 4)
	promo.Promotion = "dragon"
	if err := r.Handle(ctx, "alice", promo); !errors.Is(err, ErrMalformedIntent) {
		t.Fatalf("bad promotion: %v", err)
	}
}

func TestUnboundMoveAndMissingSession(t *testing.T) {
	r := New(pvpchess.NewManager(), newRecorder())
	ctx := context.Background()
	if err := r.Handle(ctx, "zed", move(6, 4, 4, 4)); !errors.Is(err, ErrNotBound) {
		t.Fatalf("expected ErrNotBound, got %v", err)
	}
	rec := r.notify.(*recorder)
	if got := rec.last(t, "zed"); got.Type != chessdto.EventInvalidMove {
		t.Fatalf("got %s", got.Type)
	}

	if err := r.Handle(ctx, "zed", chessdto.Intent{Type: chessdto.IntentJoinGame, GameID: "nope"}); !errors.Is(err, pvpchess.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := rec.last(t, "zed"); got.Type != chessdto.EventSessionNotFound {
		t.Fatalf("got %s", got.Type)
	}
}

func TestThirdPlayerGetsSessionFull(t *testing.T) {
	r, rec, _, id := setup(t)
	err := r.Handle(context.Background(), "carol", chessdto.Intent{Type: chessdto.IntentJoinGame, GameID: id})
	if !errors.Is(err, pvpchess.ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if got := rec.last(t, "carol"); got.Type != chessdto.EventSessionFull {
		t.Fatalf("got %s", got.Type)
	}
	if _, bound := r.Binding("carol"); bound {
		t.Fatalf("failed join must not bind")
	}
}

func TestCheckmateSendsOnlyGameOver(t *testing.T) {
	r, rec, sink, _ := setup(t)
	ctx := context.Background()
	steps := []struct {
		who string
		in  chessdto.Intent
	}{
		{"alice", move(6, 5, 5, 5)},
		{"bob", move(1, 4, 3, 4)},
		{"alice", move(6, 6, 4, 6)},
	}
	for _, st := range steps {
		if err := r.Handle(ctx, st.who, st.in); err != nil {
			t.Fatalf("%s: %v", st.who, err)
		}
	}
	rec.reset()
	if err := r.Handle(ctx, "bob", move(0, 3, 4, 7)); err != nil {
		t.Fatalf("mate: %v", err)
	}
	for _, who := range []string{"alice", "bob"} {
		got := rec.types(who)
		if len(got) != 1 || got[0] != chessdto.EventGameOver {
			t.Fatalf("%s got %v", who, got)
		}
	}
	over := rec.last(t, "alice").Data.(chessdto.GameOver)
	if over.Result != "checkmate" || over.Winner != "black" {
		t.Fatalf("gameOver: %+v", over)
	}
	if sink.events[len(sink.events)-1] != chessdto.EventGameOver {
		t.Fatalf("sink events %v", sink.events)
	}
}

func TestDisconnectAndReconnect(t *testing.T) {
	r, rec, _, id := setup(t)
	ctx := context.Background()
	rec.reset()

	r.Disconnect(ctx, "bob")
	if got := rec.last(t, "alice"); got.Type != chessdto.EventOpponentDisconnected {
		t.Fatalf("alice got %s", got.Type)
	}
	if _, bound := r.Binding("bob"); bound {
		t.Fatalf("binding should be released")
	}

	if err := r.Handle(ctx, "bob", chessdto.Intent{Type: chessdto.IntentReconnect, GameID: id}); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	gj := rec.last(t, "bob").Data.(chessdto.GameJoined)
	if !gj.Reconnected || gj.Color != "black" {
		t.Fatalf("gameJoined: %+v", gj)
	}
	if got := rec.last(t, "alice"); got.Type != chessdto.EventOpponentReconnected {
		t.Fatalf("alice got %s", got.Type)
	}

	if err := r.Handle(ctx, "bob", chessdto.Intent{Type: chessdto.IntentReconnect, GameID: id}); !errors.Is(err, pvpchess.ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestDisconnectWhileWaitingIsSilent(t *testing.T) {
	rec := newRecorder()
	r := New(pvpchess.NewManager(), rec)
	ctx := context.Background()
	if err := r.Handle(ctx, "alice", chessdto.Intent{Type: chessdto.IntentCreateGame}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rec.reset()
	r.Disconnect(ctx, "alice")
	r.Disconnect(ctx, "nobody")
	if n := len(rec.got); n != 0 {
		t.Fatalf("unexpected notifications: %v", rec.got)
	}
}

func TestSinkFailureDoesNotBreakMove(t *testing.T) {
	r, rec, sink, _ := setup(t)
	sink.fail = true
	if err := r.Handle(context.Background(), "alice", move(6, 4, 4, 4)); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := rec.last(t, "bob"); got.Type != chessdto.EventMoveMade {
		t.Fatalf("bob got %s", got.Type)
	}
}
