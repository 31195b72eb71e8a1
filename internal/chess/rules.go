package chess

// IsLegalForPieceType reports whether the piece on from may move to to by its
// movement pattern alone. It ignores checks; ValidateMove is the full test.
func IsLegalForPieceType(b *Board, from, to Position, ctx MoveContext) bool {
	return CheckPattern(b, from, to, ctx) == ViolationNone
}

// CheckPattern applies the universal preconditions and then the rule of the
// moving piece, returning the first rule broken.
func CheckPattern(b *Board, from, to Position, ctx MoveContext) Violation {
	if !from.InBounds() || !to.InBounds() {
		return ViolationOutOfBounds
	}
	piece, ok := b.PieceAt(from)
	if !ok {
		return ViolationNoPiece
	}
	if from == to {
		return ViolationSameSquare
	}
	if dest, ok := b.PieceAt(to); ok && dest.Color == piece.Color {
		return ViolationOwnPiece
	}

	switch piece.Type {
	case Pawn:
		return pawnRule(b, from, to, piece.Color, ctx)
	case Rook:
		if from.Row != to.Row && from.Col != to.Col {
			return ViolationBadPattern
		}
		return slide(b, from, to)
	case Knight:
		if !knightJump(to.Row-from.Row, to.Col-from.Col) {
			return ViolationBadPattern
		}
		return ViolationNone
	case Bishop:
		if abs(to.Row-from.Row) != abs(to.Col-from.Col) {
			return ViolationBadPattern
		}
		return slide(b, from, to)
	case Queen:
		straight := from.Row == to.Row || from.Col == to.Col
		diagonal := abs(to.Row-from.Row) == abs(to.Col-from.Col)
		if !straight && !diagonal {
			return ViolationBadPattern
		}
		return slide(b, from, to)
	case King:
		return kingRule(b, from, to, piece)
	}
	return ViolationBadPattern
}

func pawnRule(b *Board, from, to Position, color Color, ctx MoveContext) Violation {
	dir := color.forward()
	dr := to.Row - from.Row
	dc := abs(to.Col - from.Col)

	switch {
	case dc == 0 && dr == dir:
		if !b.IsEmpty(to) {
			return ViolationPathBlocked
		}
		return ViolationNone
	case dc == 0 && dr == 2*dir:
		if from.Row != color.pawnHomeRow() {
			return ViolationBadPattern
		}
		mid := Position{Row: from.Row + dir, Col: from.Col}
		if !b.IsEmpty(mid) || !b.IsEmpty(to) {
			return ViolationPathBlocked
		}
		return ViolationNone
	case dc == 1 && dr == dir:
		if b.IsOpponent(to, color) {
			return ViolationNone
		}
		if b.IsEmpty(to) && enPassantTarget(b, from, to, color, ctx) {
			return ViolationNone
		}
	}
	return ViolationBadPattern
}

// enPassantTarget reports whether the previous move was an opposing pawn's
// double advance that landed beside from, on the column being captured into.
func enPassantTarget(b *Board, from, to Position, color Color, ctx MoveContext) bool {
	lm := ctx.LastMove
	if lm == nil {
		return false
	}
	victim, ok := b.PieceAt(lm.To)
	if !ok || victim.Type != Pawn || victim.Color == color {
		return false
	}
	if abs(lm.From.Row-lm.To.Row) != 2 || lm.From.Col != lm.To.Col {
		return false
	}
	return lm.To.Row == from.Row && lm.To.Col == to.Col
}

func knightJump(dr, dc int) bool {
	dr, dc = abs(dr), abs(dc)
	return (dr == 2 && dc == 1) || (dr == 1 && dc == 2)
}

// slide requires every square strictly between from and to to be empty.
// Callers have already checked that the two squares share a line.
func slide(b *Board, from, to Position) Violation {
	if !clearBetween(b, from, to) {
		return ViolationPathBlocked
	}
	return ViolationNone
}

func clearBetween(b *Board, from, to Position) bool {
	stepR := sign(to.Row - from.Row)
	stepC := sign(to.Col - from.Col)
	cur := Position{Row: from.Row + stepR, Col: from.Col + stepC}
	for cur != to {
		if !b.IsEmpty(cur) {
			return false
		}
		cur.Row += stepR
		cur.Col += stepC
	}
	return true
}

func kingRule(b *Board, from, to Position, king Piece) Violation {
	dr := abs(to.Row - from.Row)
	dc := abs(to.Col - from.Col)
	if dr <= 1 && dc <= 1 {
		return ViolationNone
	}
	if dr == 0 && dc == 2 {
		return castlingRule(b, from, to, king)
	}
	return ViolationBadPattern
}

// castlingRule checks the static conditions only: unmoved king, unmoved rook
// of the same color in the corner, empty squares between them. Attacked
// squares are handled by the check engine.
func castlingRule(b *Board, from, to Position, king Piece) Violation {
	if king.HasMoved {
		return ViolationInvalidCastling
	}
	rookPos := Position{Row: from.Row, Col: 0}
	if to.Col > from.Col {
		rookPos.Col = BoardSize - 1
	}
	rook, ok := b.PieceAt(rookPos)
	if !ok || rook.Type != Rook || rook.Color != king.Color || rook.HasMoved {
		return ViolationInvalidCastling
	}
	if !clearBetween(b, from, rookPos) {
		return ViolationInvalidCastling
	}
	return ViolationNone
}
