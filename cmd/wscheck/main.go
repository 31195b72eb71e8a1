package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type player struct {
	name string
	conn *websocket.Conn
	in   chan frame
}

func dial(ctx context.Context, url, name string) (*player, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	p := &player{name: name, conn: conn, in: make(chan frame, 16)}
	go func() {
		defer close(p.in)
		for {
			var f frame
			if err := wsjson.Read(context.Background(), conn, &f); err != nil {
				return
			}
			fmt.Printf("[%s] %s %s\n", name, f.Type, truncate(string(f.Data), 160))
			p.in <- f
		}
	}()
	return p, nil
}

// await returns the first frame of the given type, skipping the others.
func (p *player) await(ctx context.Context, typ string) (frame, error) {
	for {
		select {
		case <-ctx.Done():
			return frame{}, fmt.Errorf("%s: waiting for %s: %w", p.name, typ, ctx.Err())
		case f, ok := <-p.in:
			if !ok {
				return frame{}, fmt.Errorf("%s: connection closed waiting for %s", p.name, typ)
			}
			if f.Type == typ {
				return f, nil
			}
		}
	}
}

func (p *player) send(ctx context.Context, in chessdto.Intent) error {
	return wsjson.Write(ctx, p.conn, in)
}

func main() {
	wsURL := os.Getenv("CHESS_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:3000/ws"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	white, err := dial(ctx, wsURL, "white")
	if err != nil {
		log.Fatalf("white dial: %v", err)
	}
	defer white.conn.Close(websocket.StatusNormalClosure, "")
	black, err := dial(ctx, wsURL, "black")
	if err != nil {
		log.Fatalf("black dial: %v", err)
	}
	defer black.conn.Close(websocket.StatusNormalClosure, "")

	if err := white.send(ctx, chessdto.Intent{Type: chessdto.IntentCreateGame}); err != nil {
		log.Fatalf("createGame: %v", err)
	}
	f, err := white.await(ctx, chessdto.EventGameCreated)
	if err != nil {
		log.Fatal(err)
	}
	var created chessdto.GameCreated
	if err := json.Unmarshal(f.Data, &created); err != nil {
		log.Fatalf("gameCreated payload: %v", err)
	}
	log.Printf("game created: id=%s color=%s", created.GameID, created.Color)

	if err := black.send(ctx, chessdto.Intent{Type: chessdto.IntentJoinGame, GameID: created.GameID}); err != nil {
		log.Fatalf("joinGame: %v", err)
	}
	if _, err := white.await(ctx, chessdto.EventOpponentJoined); err != nil {
		log.Fatal(err)
	}

	// 1. e4
	if err := white.send(ctx, chessdto.Intent{
		Type:   chessdto.IntentMakeMove,
		GameID: created.GameID,
		From:   chessdto.At(6, 4),
		To:     chessdto.At(4, 4),
	}); err != nil {
		log.Fatalf("makeMove: %v", err)
	}
	if _, err := black.await(ctx, chessdto.EventMoveMade); err != nil {
		log.Fatal(err)
	}
	log.Println("move relayed to opponent")

	// Observe for a short window
	t := time.NewTimer(2 * time.Second)
	<-t.C
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
