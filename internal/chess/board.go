package chess

// Board is an 8x8 grid of piece values. Copying a Board copies every square,
// so a Board handed out is a snapshot nobody else can mutate.
type Board struct {
	cells [BoardSize][BoardSize]Piece
}

var backRank = [BoardSize]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// NewBoard returns the standard starting position.
func NewBoard() Board {
	var b Board
	for col := 0; col < BoardSize; col++ {
		b.cells[0][col] = Piece{Type: backRank[col], Color: Black}
		b.cells[1][col] = Piece{Type: Pawn, Color: Black}
		b.cells[6][col] = Piece{Type: Pawn, Color: White}
		b.cells[7][col] = Piece{Type: backRank[col], Color: White}
	}
	return b
}

// EmptyBoard returns a board with no pieces.
func EmptyBoard() Board { return Board{} }

// PieceAt returns the piece on pos; ok is false for empty or out-of-range squares.
func (b *Board) PieceAt(pos Position) (Piece, bool) {
	if !pos.InBounds() {
		return Piece{}, false
	}
	p := b.cells[pos.Row][pos.Col]
	return p, !p.IsZero()
}

func (b *Board) IsEmpty(pos Position) bool {
	_, ok := b.PieceAt(pos)
	return !ok
}

// IsOpponent reports whether pos holds a piece of the side opposing color.
func (b *Board) IsOpponent(pos Position, color Color) bool {
	p, ok := b.PieceAt(pos)
	return ok && p.Color != color
}

// FindKing scans all squares; ok is false when the king is absent.
func (b *Board) FindKing(color Color) (Position, bool) {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			p := b.cells[row][col]
			if p.Type == King && p.Color == color {
				return Position{Row: row, Col: col}, true
			}
		}
	}
	return Position{}, false
}

// Place returns a copy of the board with piece put on pos.
func (b Board) Place(pos Position, piece Piece) Board {
	if pos.InBounds() {
		b.cells[pos.Row][pos.Col] = piece
	}
	return b
}

// Remove returns a copy of the board with pos emptied.
func (b Board) Remove(pos Position) Board {
	return b.Place(pos, Piece{})
}

// Each calls fn for every occupied square in row-major order.
func (b *Board) Each(fn func(pos Position, p Piece)) {
	for row := 0; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if p := b.cells[row][col]; !p.IsZero() {
				fn(Position{Row: row, Col: col}, p)
			}
		}
	}
}

// Grid exposes the squares for serialization.
func (b *Board) Grid() [BoardSize][BoardSize]Piece { return b.cells }

func (b *Board) set(pos Position, p Piece) { b.cells[pos.Row][pos.Col] = p }

func (b *Board) clear(pos Position) { b.cells[pos.Row][pos.Col] = Piece{} }
