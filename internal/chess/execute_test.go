package chess

import (
	"testing"
)

func TestExecuteLeavesInputUntouched(t *testing.T) {
	b := NewBoard()
	ex := Execute(b, Move{From: Pos(6, 4), To: Pos(4, 4)})

	orig, ok := b.PieceAt(Pos(6, 4))
	if !ok || orig.HasMoved {
		t.Fatalf("input board changed at e2: %+v", orig)
	}
	if !b.IsEmpty(Pos(4, 4)) {
		t.Fatalf("input board changed at e4")
	}

	moved, ok := ex.Board.PieceAt(Pos(4, 4))
	if !ok || !moved.HasMoved {
		t.Fatalf("moved pawn: %+v", moved)
	}
	if !ex.Board.IsEmpty(Pos(6, 4)) {
		t.Fatalf("origin not cleared")
	}
	if ex.Piece.Type != Pawn || ex.Captured != nil {
		t.Fatalf("execution: %+v", ex)
	}
}

func TestExecuteCapture(t *testing.T) {
	b := kings().
		Place(Pos(4, 4), Piece{Type: Rook, Color: White}).
		Place(Pos(4, 0), Piece{Type: Knight, Color: Black})
	ex := Execute(b, Move{From: Pos(4, 4), To: Pos(4, 0)})
	if ex.Captured == nil || ex.Captured.Type != Knight {
		t.Fatalf("captured: %+v", ex.Captured)
	}
	if ex.CapturedAt != Pos(4, 0) {
		t.Fatalf("captured at %v", ex.CapturedAt)
	}
	if p, _ := ex.Board.PieceAt(Pos(4, 0)); p.Type != Rook {
		t.Fatalf("destination holds %v", p.Type)
	}
}

func TestExecuteEnPassant(t *testing.T) {
	b := kings().
		Place(Pos(3, 4), Piece{Type: Pawn, Color: White, HasMoved: true}).
		Place(Pos(3, 5), Piece{Type: Pawn, Color: Black, HasMoved: true})

	ex := Execute(b, Move{From: Pos(3, 4), To: Pos(2, 5)})
	if !ex.EnPassant {
		t.Fatalf("en passant not flagged")
	}
	if ex.Captured == nil || ex.Captured.Color != Black || ex.CapturedAt != Pos(3, 5) {
		t.Fatalf("captured %+v at %v", ex.Captured, ex.CapturedAt)
	}
	if !ex.Board.IsEmpty(Pos(3, 5)) || !ex.Board.IsEmpty(Pos(3, 4)) {
		t.Fatalf("captured pawn or origin not cleared")
	}
	if _, ok := ex.Board.PieceAt(Pos(2, 5)); !ok {
		t.Fatalf("pawn missing on destination")
	}
}

func TestExecuteCastling(t *testing.T) {
	b := kings().
		Place(Pos(7, 7), Piece{Type: Rook, Color: White}).
		Place(Pos(7, 0), Piece{Type: Rook, Color: White})

	short := Execute(b, Move{From: Pos(7, 4), To: Pos(7, 6)})
	if !short.Castled {
		t.Fatalf("kingside castling not flagged")
	}
	rook, ok := short.Board.PieceAt(Pos(7, 5))
	if !ok || rook.Type != Rook || !rook.HasMoved {
		t.Fatalf("kingside rook: %+v", rook)
	}
	if !short.Board.IsEmpty(Pos(7, 7)) {
		t.Fatalf("h1 not cleared")
	}

	long := Execute(b, Move{From: Pos(7, 4), To: Pos(7, 2)})
	if !long.Castled {
		t.Fatalf("queenside castling not flagged")
	}
	rook, ok = long.Board.PieceAt(Pos(7, 3))
	if !ok || rook.Type != Rook {
		t.Fatalf("queenside rook: %+v", rook)
	}
	if !long.Board.IsEmpty(Pos(7, 0)) {
		t.Fatalf("a1 not cleared")
	}
	if king, _ := long.Board.PieceAt(Pos(7, 2)); king.Type != King || !king.HasMoved {
		t.Fatalf("king: %+v", king)
	}
}

func TestExecutePromotionGivesCheck(t *testing.T) {
	b := kings().Place(Pos(1, 0), Piece{Type: Pawn, Color: White, HasMoved: true})
	ex := Execute(b, Move{From: Pos(1, 0), To: Pos(0, 0), Promotion: Queen})
	if ex.Promoted != Queen {
		t.Fatalf("promoted=%v", ex.Promoted)
	}
	if q, _ := ex.Board.PieceAt(Pos(0, 0)); q.Type != Queen || q.Color != White {
		t.Fatalf("a8: %+v", q)
	}
	if !IsKingInCheck(&ex.Board, Black) {
		t.Fatalf("new queen should check the black king")
	}
}

func TestExecuteFromEmptySquareIsNoop(t *testing.T) {
	b := NewBoard()
	ex := Execute(b, Move{From: Pos(4, 4), To: Pos(3, 4)})
	if ex.Board != b || ex.Captured != nil {
		t.Fatalf("empty origin changed the board")
	}
}
