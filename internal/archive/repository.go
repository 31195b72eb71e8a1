// Package archive writes finished games to Postgres. It is write-only: the
// server never reads sessions back from it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
)

const schema = `CREATE TABLE IF NOT EXISTS pvp_results (
	game_id     TEXT PRIMARY KEY,
	result      TEXT NOT NULL,
	winner      TEXT NOT NULL DEFAULT '',
	moves       JSONB NOT NULL,
	plies       INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`

// Move is one ply as stored in the moves column, using the same from/to
// coordinates and promotion names as the wire protocol.
type Move struct {
	From      chessdto.Coord `json:"from"`
	To        chessdto.Coord `json:"to"`
	Promotion string         `json:"promotion,omitempty"`
}

// Record is one row of pvp_results.
type Record struct {
	GameID    string
	Result    string
	Winner    string
	Moves     []Move
	StartedAt time.Time
	EndedAt   time.Time
}

func (r Record) movesJSON() ([]byte, error) {
	if r.Moves == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Moves)
}

func (r Record) Duration() time.Duration {
	d := r.EndedAt.Sub(r.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

type Repository struct {
	db *sql.DB
}

func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func NewRepository(db *sql.DB) *Repository { return &Repository{db: db} }

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Save upserts rec keyed by game id.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	if r == nil || r.db == nil {
		return nil
	}
	moves, err := rec.movesJSON()
	if err != nil {
		return fmt.Errorf("marshal moves: %w", err)
	}
	const q = `INSERT INTO pvp_results (
		game_id, result, winner, moves, plies, started_at, ended_at, duration_ms
	) VALUES ($1,$2,$3,$4::jsonb,$5,$6,$7,$8)
	ON CONFLICT (game_id) DO UPDATE SET
		result=EXCLUDED.result,
		winner=EXCLUDED.winner,
		moves=EXCLUDED.moves,
		plies=EXCLUDED.plies,
		started_at=EXCLUDED.started_at,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`
	_, err = r.db.ExecContext(ctx, q,
		rec.GameID, rec.Result, rec.Winner, string(moves), len(rec.Moves),
		rec.StartedAt, rec.EndedAt, rec.Duration().Milliseconds(),
	)
	return err
}

// RecordFromGameOver builds the row for a finished game. ok is false when the
// payload carries no snapshot.
func RecordFromGameOver(sessionID string, over chessdto.GameOver) (Record, bool) {
	st := over.GameState
	if st == nil {
		return Record{}, false
	}
	rec := Record{
		GameID:    sessionID,
		Result:    over.Result,
		Winner:    over.Winner,
		Moves:     make([]Move, 0, len(st.MoveHistory)),
		StartedAt: st.CreatedAt,
		EndedAt:   st.CreatedAt,
	}
	for _, h := range st.MoveHistory {
		rec.Moves = append(rec.Moves, Move{From: h.From, To: h.To, Promotion: h.Promotion})
		if h.Timestamp.After(rec.EndedAt) {
			rec.EndedAt = h.Timestamp
		}
	}
	return rec, true
}
