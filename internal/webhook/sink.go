package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("webhook queue full")

// Result is the body posted when a game ends.
type Result struct {
	Event     string              `json:"event"`
	SessionID string              `json:"sessionId"`
	Result    string              `json:"result"`
	Winner    string              `json:"winner,omitempty"`
	Plies     int                 `json:"plies"`
	Message   string              `json:"message,omitempty"`
	EndedAt   time.Time           `json:"endedAt"`
	GameState *chessdto.GameState `json:"gameState,omitempty"`
}

// Sink queues gameOver events and posts them from a background worker so a
// slow endpoint never holds up move processing. Other events are ignored.
type Sink struct {
	client *Client
	queue  chan Result
	now    func() time.Time
}

func NewSink(client *Client, queueSize int) *Sink {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Sink{client: client, queue: make(chan Result, queueSize), now: time.Now}
}

func (s *Sink) Publish(_ context.Context, sessionID string, env chessdto.Envelope) error {
	if env.Type != chessdto.EventGameOver {
		return nil
	}
	over, ok := env.Data.(chessdto.GameOver)
	if !ok {
		return nil
	}
	r := Result{
		Event:     env.Type,
		SessionID: sessionID,
		Result:    over.Result,
		Winner:    over.Winner,
		Message:   over.Message,
		EndedAt:   s.now().UTC(),
		GameState: over.GameState,
	}
	if over.GameState != nil {
		r.Plies = len(over.GameState.MoveHistory)
	}
	select {
	case s.queue <- r:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run delivers queued results until ctx is done, then drains what is left
// with a short grace period.
func (s *Sink) Run(ctx context.Context) error {
	for {
		select {
		case r := <-s.queue:
			s.deliver(ctx, r)
		case <-ctx.Done():
			return s.drain()
		}
	}
}

func (s *Sink) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case r := <-s.queue:
			s.deliver(ctx, r)
		default:
			return nil
		}
	}
}

func (s *Sink) deliver(ctx context.Context, r Result) {
	if err := s.client.Post(ctx, r); err != nil {
		obslog.L().Warn("webhook_post_failed", zap.String("session_id", r.SessionID), zap.Error(err))
		return
	}
	obslog.L().Info("webhook_post", zap.String("session_id", r.SessionID), zap.String("result", r.Result))
}
