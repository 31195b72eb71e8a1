package chess

import "fmt"

// BoardSize is the number of rows and columns of the board.
const BoardSize = 8

// Color identifies a chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// forward is the row delta of a pawn advance; white starts at the bottom (row 6) and moves up.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

func (c Color) pawnHomeRow() int {
	if c == White {
		return 6
	}
	return 1
}

func (c Color) backRow() int {
	if c == White {
		return 7
	}
	return 0
}

// PieceType is the kind of a piece. The zero value means "no piece".
type PieceType string

const (
	NoPiece PieceType = ""
	Pawn    PieceType = "pawn"
	Rook    PieceType = "rook"
	Knight  PieceType = "knight"
	Bishop  PieceType = "bishop"
	Queen   PieceType = "queen"
	King    PieceType = "king"
)

// ParsePieceType accepts full names and single letters (q, r, b, n, ...).
func ParsePieceType(s string) (PieceType, bool) {
	switch s {
	case "pawn", "p":
		return Pawn, true
	case "rook", "r":
		return Rook, true
	case "knight", "n":
		return Knight, true
	case "bishop", "b":
		return Bishop, true
	case "queen", "q":
		return Queen, true
	case "king", "k":
		return King, true
	}
	return NoPiece, false
}

// Promotable reports whether a pawn may become this type.
func (t PieceType) Promotable() bool {
	return t == Queen || t == Rook || t == Bishop || t == Knight
}

// Piece is a value; the board owns every copy of it.
// HasMoved only matters for castling eligibility.
type Piece struct {
	Type     PieceType
	Color    Color
	HasMoved bool
}

func (p Piece) IsZero() bool { return p.Type == NoPiece }

func (p Piece) String() string {
	if p.IsZero() {
		return "empty"
	}
	return fmt.Sprintf("%s %s", p.Color, p.Type)
}

// Position addresses a square: row 0 is black's back rank, column 0 is the a-file.
type Position struct {
	Row int
	Col int
}

func Pos(row, col int) Position { return Position{Row: row, Col: col} }

// InBounds is the guard every operation applies before indexing the board.
func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

// Square returns the algebraic coordinate (e.g. "e2"); used for logs and tests.
func (p Position) Square() string {
	if !p.InBounds() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return fmt.Sprintf("%c%d", 'a'+p.Col, BoardSize-p.Row)
}

func (p Position) String() string { return p.Square() }

// Move is a request to relocate the piece on From to To.
// Promotion is only consulted when a pawn reaches the last rank.
type Move struct {
	From      Position
	To        Position
	Promotion PieceType
}

// LastMove is the only piece of game history the rules need (en passant).
type LastMove struct {
	From Position
	To   Position
}

// MoveContext carries what the rules may know beyond the board itself.
type MoveContext struct {
	LastMove *LastMove
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
