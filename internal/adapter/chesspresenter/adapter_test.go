package chesspresenter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
)

func playedSession(t *testing.T) (*pvpchess.Manager, *pvpchess.Session) {
	t.Helper()
	m := pvpchess.NewManager()
	ctx := context.Background()
	s, err := m.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	_, _ = m.JoinSession(ctx, s.ID, "secret-white")
	_, _ = m.JoinSession(ctx, s.ID, "secret-black")
	moves := []struct {
		who string
		mv  chess.Move
	}{
		{"secret-white", chess.Move{From: chess.Pos(6, 4), To: chess.Pos(4, 4)}},
		{"secret-black", chess.Move{From: chess.Pos(1, 3), To: chess.Pos(3, 3)}},
		{"secret-white", chess.Move{From: chess.Pos(4, 4), To: chess.Pos(3, 3)}},
	}
	var last *pvpchess.MoveResult
	for _, st := range moves {
		res, err := m.ApplyMove(ctx, s.ID, st.who, st.mv)
		if err != nil {
			t.Fatalf("ApplyMove: %v", err)
		}
		last = res
	}
	return m, last.Session
}

func TestToDTOStateHidesIdentities(t *testing.T) {
	_, s := playedSession(t)
	st := ToDTOState(s)

	raw, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret-") {
		t.Fatalf("identity leaked: %s", raw)
	}
	if !st.Players.White.Joined || !st.Players.Black.Connected {
		t.Fatalf("unexpected seats: %+v", st.Players)
	}
	if st.CurrentTurn != "black" || st.Status != "active" {
		t.Fatalf("turn/status: %s %s", st.CurrentTurn, st.Status)
	}
}

func TestToDTOStateBoardAndHistory(t *testing.T) {
	_, s := playedSession(t)
	st := ToDTOState(s)

	if len(st.Board) != 8 || len(st.Board[0]) != 8 {
		t.Fatalf("board shape %dx%d", len(st.Board), len(st.Board[0]))
	}
	if st.Board[4][4] != nil {
		t.Fatalf("e4 should be empty after exd5")
	}
	if p := st.Board[3][3]; p == nil || p.Type != "pawn" || p.Color != "white" || !p.HasMoved {
		t.Fatalf("d5: %+v", p)
	}
	if len(st.MoveHistory) != 3 {
		t.Fatalf("history len=%d", len(st.MoveHistory))
	}
	h := st.MoveHistory[2]
	if h.CapturedPiece == nil || h.CapturedPiece.Color != "black" {
		t.Fatalf("capture not reported: %+v", h)
	}
	if st.LastMove == nil || st.LastMove.To != (chessdto.Coord{Row: 3, Col: 3}) {
		t.Fatalf("last move: %+v", st.LastMove)
	}
	if st.Material.White != 39 || st.Material.Black != 38 {
		t.Fatalf("material: %+v", st.Material)
	}
	if len(st.Captured.White) != 1 || st.Captured.White[0] != "pawn" || len(st.Captured.Black) != 0 {
		t.Fatalf("captured: %+v", st.Captured)
	}
}

func TestFailureMapping(t *testing.T) {
	p := NewPresenter(msgcat.Default())
	cases := []struct {
		err   error
		event string
		code  string
	}{
		{&chess.MoveError{Violation: chess.ViolationKingInCheck}, chessdto.EventInvalidMove, "king_in_check"},
		{pvpchess.ErrWrongTurn, chessdto.EventInvalidMove, chessdto.CodeWrongTurn},
		{pvpchess.ErrNotActive, chessdto.EventInvalidMove, chessdto.CodeNotActive},
		{fmt.Errorf("join: %w", pvpchess.ErrNotFound), chessdto.EventSessionNotFound, chessdto.CodeNotFound},
		{pvpchess.ErrFull, chessdto.EventSessionFull, chessdto.CodeFull},
		{pvpchess.ErrInternal, chessdto.EventError, chessdto.CodeInternal},
	}
	for _, tc := range cases {
		env := p.Failure(tc.err, "abc")
		if env.Type != tc.event {
			t.Fatalf("%v: event=%s want %s", tc.err, env.Type, tc.event)
		}
		var code string
		switch d := env.Data.(type) {
		case chessdto.InvalidMove:
			code = d.Code
			if d.Error == "" {
				t.Fatalf("%v: empty message", tc.err)
			}
		case chessdto.Notice:
			code = d.Code
			if d.Message == "" {
				t.Fatalf("%v: empty message", tc.err)
			}
		default:
			t.Fatalf("unexpected payload %T", env.Data)
		}
		if code != tc.code {
			t.Fatalf("%v: code=%s want %s", tc.err, code, tc.code)
		}
	}
}

func TestViolationTextFromCatalog(t *testing.T) {
	p := NewPresenter(msgcat.Default())
	env := p.Failure(&chess.MoveError{Violation: chess.ViolationBadPattern}, "x")
	if d := env.Data.(chessdto.InvalidMove); d.Error != "Invalid move for this piece" {
		t.Fatalf("text=%q", d.Error)
	}

	bare := NewPresenter(nil)
	env = bare.Failure(&chess.MoveError{Violation: chess.ViolationPathBlocked}, "x")
	if d := env.Data.(chessdto.InvalidMove); d.Error != "Path is blocked" {
		t.Fatalf("fallback text=%q", d.Error)
	}
}

func TestGameOverMessage(t *testing.T) {
	p := NewPresenter(msgcat.Default())
	s := &pvpchess.Session{ID: "g", Status: pvpchess.StatusCheckmate, Winner: chess.Black}
	env := p.GameOver(s)
	d := env.Data.(chessdto.GameOver)
	if d.Result != "checkmate" || d.Winner != "black" || d.Message != "Checkmate. Black wins" {
		t.Fatalf("gameOver: %+v", d)
	}
}
