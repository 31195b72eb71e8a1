package chesspresenter

import (
	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
)

var pieceValue = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
}

// ToDTOState converts a session snapshot for the wire. Player identities are
// reduced to joined/connected flags.
func ToDTOState(s *pvpchess.Session) *chessdto.GameState {
	if s == nil {
		return nil
	}
	st := &chessdto.GameState{
		ID:          s.ID,
		Board:       toDTOBoard(&s.Board),
		CurrentTurn: string(s.Turn),
		Players: chessdto.Players{
			White: toDTOSeat(s.White),
			Black: toDTOSeat(s.Black),
		},
		Status:      string(s.Status),
		Winner:      string(s.Winner),
		MoveHistory: make([]chessdto.HistoryEntry, 0, len(s.History)),
		Material:    materialOf(&s.Board),
		Captured:    capturedOf(s.History),
		CreatedAt:   s.CreatedAt,
	}
	for _, h := range s.History {
		st.MoveHistory = append(st.MoveHistory, chessdto.HistoryEntry{
			From:          ToCoord(h.From),
			To:            ToCoord(h.To),
			PieceType:     string(h.Piece),
			PieceColor:    string(h.Color),
			CapturedPiece: ToDTOPiecePtr(h.Captured),
			Promotion:     string(h.Promotion),
			Timestamp:     h.Timestamp,
		})
	}
	if lm := s.LastMove; lm != nil {
		st.LastMove = &chessdto.LastMove{From: ToCoord(lm.From), To: ToCoord(lm.To)}
	}
	return st
}

func toDTOBoard(b *chess.Board) [][]*chessdto.PieceDTO {
	grid := b.Grid()
	rows := make([][]*chessdto.PieceDTO, chess.BoardSize)
	for r := range grid {
		rows[r] = make([]*chessdto.PieceDTO, chess.BoardSize)
		for c, p := range grid[r] {
			if p.IsZero() {
				continue
			}
			dto := ToDTOPiece(p)
			rows[r][c] = &dto
		}
	}
	return rows
}

func toDTOSeat(s pvpchess.Seat) chessdto.SeatDTO {
	return chessdto.SeatDTO{Joined: s.Taken(), Connected: s.Connected}
}

func ToDTOPiece(p chess.Piece) chessdto.PieceDTO {
	return chessdto.PieceDTO{Type: string(p.Type), Color: string(p.Color), HasMoved: p.HasMoved}
}

func ToDTOPiecePtr(p *chess.Piece) *chessdto.PieceDTO {
	if p == nil {
		return nil
	}
	dto := ToDTOPiece(*p)
	return &dto
}

func ToCoord(p chess.Position) chessdto.Coord {
	return chessdto.Coord{Row: p.Row, Col: p.Col}
}

// FromSquare converts an inbound square; ok is false when a coordinate is missing.
func FromSquare(s *chessdto.Square) (chess.Position, bool) {
	if !s.Complete() {
		return chess.Position{}, false
	}
	return chess.Position{Row: *s.Row, Col: *s.Col}, true
}

func materialOf(b *chess.Board) chessdto.MaterialScore {
	var m chessdto.MaterialScore
	b.Each(func(_ chess.Position, p chess.Piece) {
		if p.Color == chess.White {
			m.White += pieceValue[p.Type]
		} else {
			m.Black += pieceValue[p.Type]
		}
	})
	return m
}

// capturedOf lists, per side, the piece types that side has taken.
func capturedOf(history []pvpchess.HistoryEntry) chessdto.CapturedPieces {
	out := chessdto.CapturedPieces{White: []string{}, Black: []string{}}
	for _, h := range history {
		if h.Captured == nil {
			continue
		}
		if h.Color == chess.White {
			out.White = append(out.White, string(h.Captured.Type))
		} else {
			out.Black = append(out.Black, string(h.Captured.Type))
		}
	}
	return out
}
