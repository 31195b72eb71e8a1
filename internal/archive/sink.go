package archive

import (
	"context"
	"errors"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("archive queue full")

// Saver is the part of Repository the sink needs.
type Saver interface {
	Save(ctx context.Context, rec Record) error
}

// Sink archives gameOver events from a background worker.
type Sink struct {
	store Saver
	queue chan Record
}

func NewSink(store Saver, queueSize int) *Sink {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Sink{store: store, queue: make(chan Record, queueSize)}
}

func (s *Sink) Publish(_ context.Context, sessionID string, env chessdto.Envelope) error {
	if env.Type != chessdto.EventGameOver {
		return nil
	}
	over, ok := env.Data.(chessdto.GameOver)
	if !ok {
		return nil
	}
	rec, ok := RecordFromGameOver(sessionID, over)
	if !ok {
		return nil
	}
	select {
	case s.queue <- rec:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run saves queued records until ctx is done, then flushes the rest.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-s.queue:
			s.save(ctx, rec)
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for {
				select {
				case rec := <-s.queue:
					s.save(fctx, rec)
				default:
					return nil
				}
			}
		}
	}
}

func (s *Sink) save(ctx context.Context, rec Record) {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.store.Save(sctx, rec); err != nil {
		obslog.L().Warn("archive_save_failed", zap.String("session_id", rec.GameID), zap.Error(err))
		return
	}
	obslog.L().Info("archive_save", zap.String("session_id", rec.GameID), zap.Int("plies", len(rec.Moves)))
}
