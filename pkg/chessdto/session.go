package chessdto

import "time"

// Coord is an outbound board coordinate. Row 0 is black's back rank.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type PieceDTO struct {
	Type     string `json:"type"`
	Color    string `json:"color"`
	HasMoved bool   `json:"hasMoved"`
}

// SeatDTO reports a color's slot without revealing who holds it.
type SeatDTO struct {
	Joined    bool `json:"joined"`
	Connected bool `json:"connected"`
}

type Players struct {
	White SeatDTO `json:"white"`
	Black SeatDTO `json:"black"`
}

type HistoryEntry struct {
	From          Coord     `json:"from"`
	To            Coord     `json:"to"`
	PieceType     string    `json:"pieceType"`
	PieceColor    string    `json:"pieceColor"`
	CapturedPiece *PieceDTO `json:"capturedPiece,omitempty"`
	Promotion     string    `json:"promotion,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type LastMove struct {
	From Coord `json:"from"`
	To   Coord `json:"to"`
}

// MaterialScore sums standard piece values still on the board.
type MaterialScore struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// CapturedPieces lists piece types taken by each side, in capture order.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

// GameState is the client-facing snapshot of a session. Board holds null for
// empty squares.
type GameState struct {
	ID          string         `json:"id"`
	Board       [][]*PieceDTO  `json:"board"`
	CurrentTurn string         `json:"currentTurn"`
	Players     Players        `json:"players"`
	Status      string         `json:"status"`
	Winner      string         `json:"winner,omitempty"`
	MoveHistory []HistoryEntry `json:"moveHistory"`
	LastMove    *LastMove      `json:"lastMove,omitempty"`
	Material    MaterialScore  `json:"material"`
	Captured    CapturedPieces `json:"captured"`
	CreatedAt   time.Time      `json:"createdAt"`
}
