package archive

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
)

type memSaver struct {
	mu   sync.Mutex
	recs []Record
}

func (m *memSaver) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memSaver) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

func finishedGame() chessdto.GameOver {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return chessdto.GameOver{
		Result: "checkmate",
		Winner: "white",
		GameState: &chessdto.GameState{
			CreatedAt: start,
			MoveHistory: []chessdto.HistoryEntry{
				{From: chessdto.Coord{Row: 6, Col: 4}, To: chessdto.Coord{Row: 4, Col: 4}, Timestamp: start.Add(time.Second)},
				{From: chessdto.Coord{Row: 1, Col: 0}, To: chessdto.Coord{Row: 0, Col: 1}, Promotion: "knight", Timestamp: start.Add(3 * time.Second)},
			},
		},
	}
}

func TestRecordFromGameOver(t *testing.T) {
	rec, ok := RecordFromGameOver("g1", finishedGame())
	if !ok {
		t.Fatalf("expected record")
	}
	if rec.GameID != "g1" || rec.Result != "checkmate" || rec.Winner != "white" {
		t.Fatalf("record: %+v", rec)
	}
	want := []Move{
		{From: chessdto.Coord{Row: 6, Col: 4}, To: chessdto.Coord{Row: 4, Col: 4}},
		{From: chessdto.Coord{Row: 1, Col: 0}, To: chessdto.Coord{Row: 0, Col: 1}, Promotion: "knight"},
	}
	if len(rec.Moves) != len(want) {
		t.Fatalf("moves: %+v", rec.Moves)
	}
	for i := range want {
		if rec.Moves[i] != want[i] {
			t.Fatalf("move %d: %+v want %+v", i, rec.Moves[i], want[i])
		}
	}
	if rec.Duration() != 3*time.Second {
		t.Fatalf("duration=%v", rec.Duration())
	}

	if _, ok := RecordFromGameOver("g2", chessdto.GameOver{Result: "stalemate"}); ok {
		t.Fatalf("missing snapshot should not produce a record")
	}
}

func TestMovesColumnIsStructured(t *testing.T) {
	rec, _ := RecordFromGameOver("g1", finishedGame())
	raw, err := rec.movesJSON()
	if err != nil {
		t.Fatalf("movesJSON: %v", err)
	}
	const want = `[{"from":{"row":6,"col":4},"to":{"row":4,"col":4}},` +
		`{"from":{"row":1,"col":0},"to":{"row":0,"col":1},"promotion":"knight"}]`
	if string(raw) != want {
		t.Fatalf("moves column:\n got %s\nwant %s", raw, want)
	}

	empty, err := Record{GameID: "g2"}.movesJSON()
	if err != nil || string(empty) != "[]" {
		t.Fatalf("empty moves column: %s (%v)", empty, err)
	}
}

func TestSinkArchivesOnlyGameOver(t *testing.T) {
	store := &memSaver{}
	s := NewSink(store, 4)
	ctx, cancel := context.WithCancel(context.Background())

	_ = s.Publish(ctx, "g1", chessdto.Envelope{Type: chessdto.EventMoveMade, Data: chessdto.MoveMade{}})
	if err := s.Publish(ctx, "g1", chessdto.Envelope{Type: chessdto.EventGameOver, Data: finishedGame()}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := store.count(); n != 1 {
		t.Fatalf("saved %d records, want 1", n)
	}
}

func TestNilRepositorySaveIsNoop(t *testing.T) {
	var r *Repository
	if err := r.Save(context.Background(), Record{GameID: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
