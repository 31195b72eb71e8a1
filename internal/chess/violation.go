package chess

import "fmt"

// Violation names the rule a rejected move broke. Values double as message keys.
type Violation string

const (
	ViolationNone               Violation = ""
	ViolationOutOfBounds        Violation = "out_of_bounds"
	ViolationNoPiece            Violation = "no_piece"
	ViolationNotYourPiece       Violation = "not_your_piece"
	ViolationSameSquare         Violation = "same_square"
	ViolationOwnPiece           Violation = "own_piece"
	ViolationBadPattern         Violation = "bad_pattern"
	ViolationPathBlocked        Violation = "path_blocked"
	ViolationInvalidCastling    Violation = "invalid_castling"
	ViolationCastleOutOfCheck   Violation = "castle_out_of_check"
	ViolationCastleThroughCheck Violation = "castle_through_check"
	ViolationKingInCheck        Violation = "king_in_check"
	ViolationPromotionRequired  Violation = "promotion_required"
	ViolationInvalidPromotion   Violation = "invalid_promotion"
)

var violationText = map[Violation]string{
	ViolationOutOfBounds:        "Invalid position",
	ViolationNoPiece:            "No piece at source position",
	ViolationNotYourPiece:       "That piece belongs to your opponent",
	ViolationSameSquare:         "Piece must move to a different square",
	ViolationOwnPiece:           "Cannot capture your own piece",
	ViolationBadPattern:         "Invalid move for this piece",
	ViolationPathBlocked:        "Path is blocked",
	ViolationInvalidCastling:    "Castling is not allowed",
	ViolationCastleOutOfCheck:   "Cannot castle while in check",
	ViolationCastleThroughCheck: "Cannot castle through an attacked square",
	ViolationKingInCheck:        "Move would leave king in check",
	ViolationPromotionRequired:  "Choose a piece to promote to",
	ViolationInvalidPromotion:   "Pawns promote to queen, rook, bishop or knight",
}

func (v Violation) String() string {
	if t, ok := violationText[v]; ok {
		return t
	}
	return string(v)
}

// MoveError is an illegal-move rejection.
type MoveError struct {
	Violation Violation
	Move      Move
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("illegal move %s-%s: %s", e.Move.From, e.Move.To, string(e.Violation))
}

func reject(v Violation, m Move) error {
	return &MoveError{Violation: v, Move: m}
}
