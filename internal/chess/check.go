package chess

// Outcome classifies a position for the side to move.
type Outcome string

const (
	Ongoing   Outcome = ""
	Checkmate Outcome = "checkmate"
	Stalemate Outcome = "stalemate"
)

// IsSquareAttacked reports whether any piece of color by attacks target.
// Pawns attack diagonally only and kings never attack by castling.
func IsSquareAttacked(b *Board, target Position, by Color) bool {
	if !target.InBounds() {
		return false
	}
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			p := b.cells[row][col]
			if p.IsZero() || p.Color != by {
				continue
			}
			if attacks(b, Position{Row: row, Col: col}, p, target) {
				return true
			}
		}
	}
	return false
}

func attacks(b *Board, from Position, p Piece, target Position) bool {
	if from == target {
		return false
	}
	dr := target.Row - from.Row
	dc := target.Col - from.Col
	switch p.Type {
	case Pawn:
		return dr == p.Color.forward() && abs(dc) == 1
	case Knight:
		return knightJump(dr, dc)
	case King:
		return abs(dr) <= 1 && abs(dc) <= 1
	case Rook:
		return (dr == 0 || dc == 0) && clearBetween(b, from, target)
	case Bishop:
		return abs(dr) == abs(dc) && clearBetween(b, from, target)
	case Queen:
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && clearBetween(b, from, target)
	}
	return false
}

// IsKingInCheck reports whether color's king is attacked. A board without
// that king is never in check.
func IsKingInCheck(b *Board, color Color) bool {
	king, ok := b.FindKing(color)
	if !ok {
		return false
	}
	return IsSquareAttacked(b, king, color.Opponent())
}

// legal is the single source of truth for move legality, short of promotion
// choice: pattern, castling safety, then simulate on a copy and test for check.
func legal(b *Board, m Move, ctx MoveContext) Violation {
	if v := CheckPattern(b, m.From, m.To, ctx); v != ViolationNone {
		return v
	}
	piece, _ := b.PieceAt(m.From)
	opp := piece.Color.Opponent()

	if piece.Type == King && abs(m.To.Col-m.From.Col) == 2 {
		if IsSquareAttacked(b, m.From, opp) {
			return ViolationCastleOutOfCheck
		}
		pass := Position{Row: m.From.Row, Col: m.From.Col + sign(m.To.Col-m.From.Col)}
		if IsSquareAttacked(b, pass, opp) {
			return ViolationCastleThroughCheck
		}
	}

	next := Execute(*b, Move{From: m.From, To: m.To}).Board
	if IsKingInCheck(&next, piece.Color) {
		return ViolationKingInCheck
	}
	return ViolationNone
}

// ValidateMove returns nil when m is fully legal, or a *MoveError naming the
// broken rule. A pawn reaching the last rank must name its promotion piece.
func ValidateMove(b *Board, m Move, ctx MoveContext) error {
	if v := legal(b, m, ctx); v != ViolationNone {
		return reject(v, m)
	}
	piece, _ := b.PieceAt(m.From)
	if piece.Type == Pawn && m.To.Row == piece.Color.Opponent().backRow() {
		if m.Promotion == NoPiece {
			return reject(ViolationPromotionRequired, m)
		}
		if !m.Promotion.Promotable() {
			return reject(ViolationInvalidPromotion, m)
		}
	}
	return nil
}

// LegalMoves lists the destinations the piece on from may legally reach.
func LegalMoves(b *Board, from Position, ctx MoveContext) []Position {
	if _, ok := b.PieceAt(from); !ok {
		return nil
	}
	var out []Position
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			to := Position{Row: row, Col: col}
			if legal(b, Move{From: from, To: to}, ctx) == ViolationNone {
				out = append(out, to)
			}
		}
	}
	return out
}

var promotionChoices = [...]PieceType{Queen, Rook, Bishop, Knight}

// AllLegalMoves lists every legal move of color. Promotions appear once per
// promotion piece.
func AllLegalMoves(b *Board, color Color, ctx MoveContext) []Move {
	var out []Move
	b.Each(func(from Position, p Piece) {
		if p.Color != color {
			return
		}
		for _, to := range LegalMoves(b, from, ctx) {
			if p.Type == Pawn && to.Row == color.Opponent().backRow() {
				for _, promo := range promotionChoices {
					out = append(out, Move{From: from, To: to, Promotion: promo})
				}
				continue
			}
			out = append(out, Move{From: from, To: to})
		}
	})
	return out
}

// HasAnyLegalMove stops at the first legal move found.
func HasAnyLegalMove(b *Board, color Color, ctx MoveContext) bool {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			p := b.cells[row][col]
			if p.IsZero() || p.Color != color {
				continue
			}
			if len(LegalMoves(b, Position{Row: row, Col: col}, ctx)) > 0 {
				return true
			}
		}
	}
	return false
}

// Classify decides whether color, to move, is checkmated, stalemated or still playing.
func Classify(b *Board, color Color, ctx MoveContext) Outcome {
	if HasAnyLegalMove(b, color, ctx) {
		return Ongoing
	}
	if IsKingInCheck(b, color) {
		return Checkmate
	}
	return Stalemate
}

func IsCheckmate(b *Board, color Color, ctx MoveContext) bool {
	return IsKingInCheck(b, color) && !HasAnyLegalMove(b, color, ctx)
}

func IsStalemate(b *Board, color Color, ctx MoveContext) bool {
	return !IsKingInCheck(b, color) && !HasAnyLegalMove(b, color, ctx)
}
