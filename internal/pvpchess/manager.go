package pvpchess

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"go.uber.org/zap"
)

const (
	sessionIDBytes   = 8
	maxIDAttempts    = 5
	defaultSweepIdle = 30 * time.Minute
)

// Manager owns every live session. The registry lock only guards lookup and
// insertion; each session has its own lock so moves in different sessions
// never wait on each other.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	maxSessions int
	now         func() time.Time
	newID       func() (string, error)
	classify    func(b *chess.Board, turn chess.Color, ctx chess.MoveContext) chess.Outcome
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

type Option func(*Manager)

// WithMaxSessions caps the number of live sessions. Zero means unlimited.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxSessions = n
		}
	}
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		now:      time.Now,
		newID:    newSessionID,
		classify: chess.Classify,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateSession registers a new waiting session with a fresh board.
func (m *Manager) CreateSession(ctx context.Context) (*Session, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := m.newID()
		if err != nil {
			return nil, fmt.Errorf("session id: %w", err)
		}
		now := m.now()
		s := &Session{
			ID:        id,
			Board:     chess.NewBoard(),
			Turn:      chess.White,
			Status:    StatusWaiting,
			History:   []HistoryEntry{},
			CreatedAt: now,
			UpdatedAt: now,
		}

		m.mu.Lock()
		if _, taken := m.sessions[id]; taken {
			m.mu.Unlock()
			obslog.L().Warn("pvp_session_id_collision", zap.String("session_id", id), zap.Int("attempt", i+1))
			continue
		}
		if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
			m.mu.Unlock()
			return nil, ErrCapacity
		}
		m.sessions[id] = &entry{s: s}
		snap := s.clone()
		total := len(m.sessions)
		m.mu.Unlock()

		obslog.L().Info("pvp_session_create", zap.String("session_id", id), zap.Int("sessions", total))
		return snap, nil
	}
	return nil, fmt.Errorf("failed to allocate session id after %d attempts", maxIDAttempts)
}

// JoinSession seats player. Joining again with a seated identity is a no-op
// apart from marking the player connected.
func (m *Manager) JoinSession(ctx context.Context, id, player string) (*JoinResult, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, ErrInvalidArgs
	}
	var res *JoinResult
	err := m.withSession(id, func(s *Session) error {
		r, err := m.seatLocked(s, player)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_session_join",
		zap.String("session_id", id),
		zap.String("color", string(res.Color)),
		zap.Bool("rejoined", res.Rejoined),
		zap.Bool("started", res.Started),
	)
	return res, nil
}

// Reconnect rebinds a seated identity whose previous connection is gone.
// Unknown identities are treated like a join.
func (m *Manager) Reconnect(ctx context.Context, id, player string) (*JoinResult, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, ErrInvalidArgs
	}
	var res *JoinResult
	err := m.withSession(id, func(s *Session) error {
		if c, ok := s.ColorOf(player); ok && s.SeatOf(c).Connected {
			return ErrAlreadyConnected
		}
		r, err := m.seatLocked(s, player)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_session_reconnect",
		zap.String("session_id", id),
		zap.String("color", string(res.Color)),
		zap.Bool("rejoined", res.Rejoined),
	)
	return res, nil
}

func (m *Manager) seatLocked(s *Session, player string) (*JoinResult, error) {
	res := &JoinResult{}
	if c, ok := s.ColorOf(player); ok {
		s.seat(c).Connected = true
		res.Color = c
		res.Rejoined = true
	} else {
		switch {
		case !s.White.Taken():
			s.White = Seat{ID: player, Connected: true}
			res.Color = chess.White
		case !s.Black.Taken():
			s.Black = Seat{ID: player, Connected: true}
			res.Color = chess.Black
		default:
			return nil, ErrFull
		}
		if s.Status == StatusWaiting && s.White.Taken() && s.Black.Taken() {
			s.Status = StatusActive
			res.Started = true
		}
	}
	s.UpdatedAt = m.now()
	res.Session = s.clone()
	return res, nil
}

// Disconnect marks player's seat as not live. The seat itself is kept so the
// player can reconnect.
func (m *Manager) Disconnect(ctx context.Context, id, player string) (*Session, error) {
	var snap *Session
	err := m.withSession(id, func(s *Session) error {
		c, ok := s.ColorOf(player)
		if !ok {
			return ErrNotParticipant
		}
		s.seat(c).Connected = false
		s.UpdatedAt = m.now()
		snap = s.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("pvp_session_disconnect", zap.String("session_id", id), zap.String("status", string(snap.Status)))
	return snap, nil
}

// ApplyMove validates and applies a move for player, then classifies the
// resulting position for the side to move. The move is built on a copy and
// committed only once classification is done, so a failure leaves the
// session as it was.
func (m *Manager) ApplyMove(ctx context.Context, id, player string, mv chess.Move) (*MoveResult, error) {
	var res *MoveResult
	err := m.withSession(id, func(s *Session) error {
		color, ok := s.ColorOf(player)
		if !ok {
			return ErrNotParticipant
		}
		if s.Status != StatusActive {
			return ErrNotActive
		}
		if color != s.Turn {
			return ErrWrongTurn
		}
		if p, ok := s.Board.PieceAt(mv.From); ok && p.Color != color {
			return &chess.MoveError{Violation: chess.ViolationNotYourPiece, Move: mv}
		}
		if err := chess.ValidateMove(&s.Board, mv, s.moveContext()); err != nil {
			return err
		}

		ex := chess.Execute(s.Board, mv)
		now := m.now()
		next := s.clone()
		next.Board = ex.Board
		next.History = append(next.History, HistoryEntry{
			From:      mv.From,
			To:        mv.To,
			Piece:     ex.Piece.Type,
			Color:     color,
			Captured:  ex.Captured,
			Promotion: ex.Promoted,
			Timestamp: now,
		})
		next.LastMove = &chess.LastMove{From: mv.From, To: mv.To}
		next.Turn = color.Opponent()
		next.UpdatedAt = now

		outcome := m.classify(&next.Board, next.Turn, next.moveContext())
		switch outcome {
		case chess.Checkmate:
			next.Status = StatusCheckmate
			next.Winner = color
		case chess.Stalemate:
			next.Status = StatusStalemate
		}

		*s = *next
		res = &MoveResult{
			Session:  s.clone(),
			Move:     mv,
			Piece:    ex.Piece,
			Captured: ex.Captured,
			NextTurn: s.Turn,
			Outcome:  outcome,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	obslog.L().Info("pvp_move",
		zap.String("session_id", id),
		zap.String("color", string(res.Piece.Color)),
		zap.String("from", mv.From.Square()),
		zap.String("to", mv.To.Square()),
		zap.String("turn", string(res.NextTurn)),
		zap.String("status", string(res.Session.Status)),
		zap.Int("ply", len(res.Session.History)),
	)
	return res, nil
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(ctx context.Context, id string) (*Session, error) {
	var snap *Session
	err := m.withSession(id, func(s *Session) error {
		snap = s.clone()
		return nil
	})
	return snap, err
}

// LegalMoves lists the legal destinations of the piece on from in the
// session's current position.
func (m *Manager) LegalMoves(ctx context.Context, id string, from chess.Position) ([]chess.Position, error) {
	var out []chess.Position
	err := m.withSession(id, func(s *Session) error {
		if !from.InBounds() {
			return ErrInvalidArgs
		}
		out = chess.LegalMoves(&s.Board, from, s.moveContext())
		return nil
	})
	return out, err
}

// EndSession removes the session; false when it did not exist.
func (m *Manager) EndSession(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		obslog.L().Info("pvp_session_end", zap.String("session_id", id))
	}
	return ok
}

// ListSessions returns the ids of all live sessions, sorted.
func (m *Manager) ListSessions() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions nobody can still play in: finished sessions, and
// sessions without a connected player, idle for longer than idle. It returns
// the removed ids, sorted.
func (m *Manager) Sweep(idle time.Duration) []string {
	if idle <= 0 {
		idle = defaultSweepIdle
	}
	cutoff := m.now().Add(-idle)

	m.mu.RLock()
	candidates := make(map[string]*entry, len(m.sessions))
	for id, e := range m.sessions {
		candidates[id] = e
	}
	m.mu.RUnlock()

	var removed []string
	for id, e := range candidates {
		e.mu.Lock()
		s := e.s
		stale := s.UpdatedAt.Before(cutoff) && (s.Status.Terminal() || (!s.White.Connected && !s.Black.Connected))
		e.mu.Unlock()
		if !stale {
			continue
		}
		m.mu.Lock()
		if cur, ok := m.sessions[id]; ok && cur == e {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
		m.mu.Unlock()
	}
	if len(removed) > 0 {
		sort.Strings(removed)
		obslog.L().Info("pvp_session_sweep", zap.Int("removed", len(removed)), zap.Duration("idle", idle))
	}
	return removed
}

func (m *Manager) lookup(id string) *entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// withSession runs fn under the session's lock. A panic inside fn is
// contained to this session and reported as ErrInternal.
func (m *Manager) withSession(id string, fn func(s *Session) error) (err error) {
	e := m.lookup(id)
	if e == nil {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Error("pvp_session_panic",
				zap.String("session_id", id),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = ErrInternal
		}
	}()
	return fn(e.s)
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
