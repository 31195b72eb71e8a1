// Package eventbus mirrors session events onto Redis so processes other
// than the game server can follow games as they happen.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/Cheese-PvP-server/internal/obslog"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultPrefix = "chess:"
	recentLimit   = 50
	ttlEvents     = 24 * time.Hour
)

// Message is what subscribers receive.
type Message struct {
	SessionID string          `json:"sessionId"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	At        time.Time       `json:"at"`
}

// Publisher publishes every envelope on "<prefix>session:<id>" and on
// "<prefix>events", keeps the latest events per session in a capped list and
// tracks which sessions are still running.
type Publisher struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewPublisher(rdb *redis.Client, prefix string) *Publisher {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{rdb: rdb, prefix: prefix, now: time.Now}
}

// Dial connects to redisURL and verifies the connection.
func Dial(ctx context.Context, redisURL, prefix string) (*Publisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewPublisher(rdb, prefix), nil
}

func (p *Publisher) SessionChannel(id string) string {
	return p.prefix + "session:" + strings.TrimSpace(id)
}

func (p *Publisher) AllChannel() string         { return p.prefix + "events" }
func (p *Publisher) keyRecent(id string) string { return p.SessionChannel(id) + ":recent" }
func (p *Publisher) keyActive() string          { return p.prefix + "sessions:active" }

func (p *Publisher) Publish(ctx context.Context, sessionID string, env chessdto.Envelope) error {
	data, err := json.Marshal(env.Data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Type, err)
	}
	raw, err := json.Marshal(Message{SessionID: sessionID, Type: env.Type, Data: data, At: p.now().UTC()})
	if err != nil {
		return err
	}

	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.SessionChannel(sessionID), raw)
		pipe.Publish(ctx, p.AllChannel(), raw)
		pipe.RPush(ctx, p.keyRecent(sessionID), raw)
		pipe.LTrim(ctx, p.keyRecent(sessionID), -recentLimit, -1)
		pipe.Expire(ctx, p.keyRecent(sessionID), ttlEvents)
		if env.Type == chessdto.EventGameOver {
			pipe.SRem(ctx, p.keyActive(), sessionID)
		} else {
			pipe.SAdd(ctx, p.keyActive(), sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	obslog.L().Debug("eventbus_publish", zap.String("session_id", sessionID), zap.String("event", env.Type))
	return nil
}

// Recent returns up to the last n events of a session, oldest first.
func (p *Publisher) Recent(ctx context.Context, sessionID string, n int) ([]Message, error) {
	if n <= 0 || n > recentLimit {
		n = recentLimit
	}
	rows, err := p.rdb.LRange(ctx, p.keyRecent(sessionID), int64(-n), -1).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(rows))
	for _, r := range rows {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Active lists sessions that have published events but no gameOver yet.
func (p *Publisher) Active(ctx context.Context) ([]string, error) {
	return p.rdb.SMembers(ctx, p.keyActive()).Result()
}

// Forget drops a session from the active index, e.g. after it was swept.
func (p *Publisher) Forget(ctx context.Context, sessionID string) error {
	return p.rdb.SRem(ctx, p.keyActive(), sessionID).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
