package chess

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
)

// line replays UCI moves on our board while tracking turn and the last move.
type line struct {
	board Board
	turn  Color
	last  *LastMove
	uci   []string
}

func newLine() *line { return &line{board: NewBoard(), turn: White} }

func (l *line) ctx() MoveContext { return MoveContext{LastMove: l.last} }

func (l *line) play(t *testing.T, uci string) *line {
	t.Helper()
	m := parseUCI(t, uci)
	if err := ValidateMove(&l.board, m, l.ctx()); err != nil {
		t.Fatalf("move %s after %v: %v", uci, l.uci, err)
	}
	next := &line{
		board: Execute(l.board, m).Board,
		turn:  l.turn.Opponent(),
		last:  &LastMove{From: m.From, To: m.To},
		uci:   append(append([]string(nil), l.uci...), uci),
	}
	return next
}

func parseUCI(t *testing.T, s string) Move {
	t.Helper()
	if len(s) < 4 {
		t.Fatalf("short uci move %q", s)
	}
	sq := func(f, r byte) Position { return Position{Row: BoardSize - int(r-'0'), Col: int(f - 'a')} }
	m := Move{From: sq(s[0], s[1]), To: sq(s[2], s[3])}
	if len(s) == 5 {
		p, ok := ParsePieceType(string(s[4]))
		if !ok {
			t.Fatalf("bad promotion in %q", s)
		}
		m.Promotion = p
	}
	return m
}

var uciPromotion = map[PieceType]string{Queen: "q", Rook: "r", Bishop: "b", Knight: "n"}

func toUCI(m Move) string {
	return m.From.Square() + m.To.Square() + uciPromotion[m.Promotion]
}

func oracleGame(t *testing.T, moves []string) *nchess.Game {
	t.Helper()
	game := nchess.NewGame()
	for _, mv := range moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			t.Fatalf("oracle rejected %s in %v: %v", mv, moves, err)
		}
	}
	return game
}

// compare checks that every move we generate is accepted by the oracle and
// that both sides count the same number of moves.
func compare(t *testing.T, l *line) {
	t.Helper()
	ours := AllLegalMoves(&l.board, l.turn, l.ctx())
	game := oracleGame(t, l.uci)
	if want := len(game.ValidMoves()); len(ours) != want {
		t.Fatalf("move count after %v: ours=%d oracle=%d", l.uci, len(ours), want)
	}
	for _, m := range ours {
		oracleGame(t, append(append([]string(nil), l.uci...), toUCI(m)))
	}
}

func TestOracleTwoPlies(t *testing.T) {
	if testing.Short() {
		t.Skip("exhaustive oracle comparison")
	}
	root := newLine()
	compare(t, root)
	for _, m1 := range AllLegalMoves(&root.board, root.turn, root.ctx()) {
		ply1 := root.play(t, toUCI(m1))
		compare(t, ply1)
		for _, m2 := range AllLegalMoves(&ply1.board, ply1.turn, ply1.ctx()) {
			compare(t, ply1.play(t, toUCI(m2)))
		}
	}
}

func TestOracleSelectedLines(t *testing.T) {
	lines := map[string][]string{
		"castling ready": {"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6"},
		"en passant":     {"e2e4", "a7a6", "e4e5", "d7d5"},
		"pinned knight":  {"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "d7d6"},
		"scholar's mate": {"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"},
		"promotion race": {"a2a4", "b7b5", "a4b5", "a7a6", "b5a6", "c8b7", "a6b7", "b8c6"},
	}
	for name, moves := range lines {
		t.Run(name, func(t *testing.T) {
			l := newLine()
			for _, mv := range moves {
				l = l.play(t, mv)
			}
			compare(t, l)
		})
	}
}

func TestOracleCastlingAndEnPassantPresent(t *testing.T) {
	l := newLine()
	for _, mv := range []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1c4", "g8f6"} {
		l = l.play(t, mv)
	}
	if !containsPos(LegalMoves(&l.board, Pos(7, 4), l.ctx()), Pos(7, 6)) {
		t.Fatalf("short castling missing")
	}
	castled := l.play(t, "e1g1")
	if rook, _ := castled.board.PieceAt(Pos(7, 5)); rook.Type != Rook {
		t.Fatalf("f1 holds %v", rook.Type)
	}

	ep := newLine()
	for _, mv := range []string{"e2e4", "a7a6", "e4e5", "d7d5"} {
		ep = ep.play(t, mv)
	}
	if !containsPos(LegalMoves(&ep.board, Pos(3, 4), ep.ctx()), Pos(2, 3)) {
		t.Fatalf("en passant missing")
	}
	after := ep.play(t, "e5d6")
	if !after.board.IsEmpty(Pos(3, 3)) {
		t.Fatalf("d5 pawn not removed")
	}
}

func TestOracleScholarsMateIsCheckmate(t *testing.T) {
	l := newLine()
	for _, mv := range []string{"e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7"} {
		l = l.play(t, mv)
	}
	if o := Classify(&l.board, l.turn, l.ctx()); o != Checkmate {
		t.Fatalf("classify=%v", o)
	}
	if o := oracleGame(t, l.uci).Outcome(); o != nchess.WhiteWon {
		t.Fatalf("oracle outcome=%v", o)
	}
}
