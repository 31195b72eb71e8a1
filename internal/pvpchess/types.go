package pvpchess

import (
	"time"

	"github.com/park285/Cheese-PvP-server/internal/chess"
)

// Status represents a session lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
)

// Terminal reports whether no further moves are accepted.
func (s Status) Terminal() bool { return s == StatusCheckmate || s == StatusStalemate }

// Seat is one color's slot. ID is the player's identity and doubles as the
// reconnection credential, so it must never reach the other player.
type Seat struct {
	ID        string
	Connected bool
}

func (s Seat) Taken() bool { return s.ID != "" }

// HistoryEntry records one applied move.
type HistoryEntry struct {
	From      chess.Position
	To        chess.Position
	Piece     chess.PieceType
	Color     chess.Color
	Captured  *chess.Piece
	Promotion chess.PieceType
	Timestamp time.Time
}

// Session is the authoritative state of one game. Values handed out by the
// Manager are deep copies.
type Session struct {
	ID        string
	Board     chess.Board
	Turn      chess.Color
	White     Seat
	Black     Seat
	Status    Status
	Winner    chess.Color
	History   []HistoryEntry
	LastMove  *chess.LastMove
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ColorOf returns the color seated by player.
func (s *Session) ColorOf(player string) (chess.Color, bool) {
	switch {
	case player == "":
		return "", false
	case s.White.ID == player:
		return chess.White, true
	case s.Black.ID == player:
		return chess.Black, true
	}
	return "", false
}

// SeatOf returns a copy of the seat for color.
func (s *Session) SeatOf(c chess.Color) Seat {
	if c == chess.White {
		return s.White
	}
	return s.Black
}

// OpponentOf returns the identity seated across from player, if any.
func (s *Session) OpponentOf(player string) string {
	c, ok := s.ColorOf(player)
	if !ok {
		return ""
	}
	return s.SeatOf(c.Opponent()).ID
}

func (s *Session) seat(c chess.Color) *Seat {
	if c == chess.White {
		return &s.White
	}
	return &s.Black
}

func (s *Session) moveContext() chess.MoveContext {
	return chess.MoveContext{LastMove: s.LastMove}
}

func (s *Session) clone() *Session {
	cp := *s
	if s.LastMove != nil {
		lm := *s.LastMove
		cp.LastMove = &lm
	}
	cp.History = make([]HistoryEntry, len(s.History))
	for i, h := range s.History {
		if h.Captured != nil {
			c := *h.Captured
			h.Captured = &c
		}
		cp.History[i] = h
	}
	return &cp
}

// JoinResult describes a successful join or reconnect.
type JoinResult struct {
	Session *Session
	Color   chess.Color
	// Rejoined is set when the player already held a seat.
	Rejoined bool
	// Started is set when this join filled the second seat.
	Started bool
}

// MoveResult describes an applied move.
type MoveResult struct {
	Session  *Session
	Move     chess.Move
	Piece    chess.Piece
	Captured *chess.Piece
	NextTurn chess.Color
	Outcome  chess.Outcome
}

// Errors
var (
	ErrInvalidArgs      = errf("invalid arguments")
	ErrNotFound         = errf("session not found")
	ErrFull             = errf("session already has two players")
	ErrNotParticipant   = error(notParticipant{})
	ErrNotActive        = errf("session is not active")
	ErrWrongTurn        = errf("not your turn")
	ErrAlreadyConnected = errf("player is already connected")
	ErrCapacity         = errf("session capacity reached")
	ErrInternal         = errf("internal session error")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }

// notParticipant is the not-found case for an identity without a seat, so
// errors.Is(err, ErrNotFound) holds for it too.
type notParticipant struct{}

func (notParticipant) Error() string        { return "player is not seated in this session" }
func (notParticipant) Is(target error) bool { return target == ErrNotFound }
