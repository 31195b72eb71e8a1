package chess

// Execution is the result of applying a move to a board.
type Execution struct {
	Board Board
	// Piece is the mover as it stood before the move.
	Piece      Piece
	Captured   *Piece
	CapturedAt Position
	EnPassant  bool
	Castled    bool
	Promoted   PieceType
}

// Execute applies m, which must already be legal, and returns the new board.
// The input board is never modified.
func Execute(b Board, m Move) Execution {
	piece, ok := b.PieceAt(m.From)
	if !ok || !m.To.InBounds() {
		return Execution{Board: b}
	}
	ex := Execution{Piece: piece}
	next := b

	if dest, ok := next.PieceAt(m.To); ok {
		captured := dest
		ex.Captured = &captured
		ex.CapturedAt = m.To
	}

	switch piece.Type {
	case Pawn:
		if m.From.Col != m.To.Col && next.IsEmpty(m.To) {
			victimAt := Position{Row: m.From.Row, Col: m.To.Col}
			if victim, ok := next.PieceAt(victimAt); ok {
				ex.Captured = &victim
				ex.CapturedAt = victimAt
				ex.EnPassant = true
				next.clear(victimAt)
			}
		}
	case King:
		if d := m.To.Col - m.From.Col; abs(d) == 2 {
			rookFrom := Position{Row: m.From.Row, Col: 0}
			rookTo := Position{Row: m.From.Row, Col: m.To.Col + 1}
			if d > 0 {
				rookFrom.Col = BoardSize - 1
				rookTo.Col = m.To.Col - 1
			}
			if rook, ok := next.PieceAt(rookFrom); ok {
				rook.HasMoved = true
				next.clear(rookFrom)
				next.set(rookTo, rook)
				ex.Castled = true
			}
		}
	}

	moved := piece
	moved.HasMoved = true
	if piece.Type == Pawn && m.To.Row == piece.Color.Opponent().backRow() && m.Promotion.Promotable() {
		moved.Type = m.Promotion
		ex.Promoted = m.Promotion
	}
	next.clear(m.From)
	next.set(m.To, moved)

	ex.Board = next
	return ex
}
