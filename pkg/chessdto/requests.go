package chessdto

import (
	"encoding/json"
	"strings"
	"time"
)

// Inbound intent types.
const (
	IntentCreateGame = "createGame"
	IntentJoinGame   = "joinGame"
	IntentMakeMove   = "makeMove"
	IntentReconnect  = "reconnect"
)

// Square is an inbound coordinate. Fields are pointers so a missing row or
// column can be told apart from zero.
type Square struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

// At builds a complete Square.
func At(row, col int) *Square { return &Square{Row: &row, Col: &col} }

func (s *Square) Complete() bool { return s != nil && s.Row != nil && s.Col != nil }

// Intent is one client request received over the persistent connection.
type Intent struct {
	Type      string  `json:"type"`
	GameID    string  `json:"gameId,omitempty"`
	From      *Square `json:"from,omitempty"`
	To        *Square `json:"to,omitempty"`
	Promotion string  `json:"promotion,omitempty"`
}

// SessionID returns the trimmed game id.
func (i Intent) SessionID() string { return strings.TrimSpace(i.GameID) }

// APIResponse is the envelope of every REST reply.
type APIResponse struct {
	Success   bool       `json:"success"`
	GameID    string     `json:"gameId,omitempty"`
	GameState *GameState `json:"gameState,omitempty"`
	Error     string     `json:"error,omitempty"`
	Code      string     `json:"code,omitempty"`
	Retryable bool       `json:"retryable,omitempty"`
}

type LegalMovesResponse struct {
	Success bool    `json:"success"`
	GameID  string  `json:"gameId"`
	From    Coord   `json:"from"`
	Moves   []Coord `json:"moves"`
}

type HealthResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Sessions    int       `json:"sessions"`
	Connections int       `json:"connections"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventRecord is one mirrored session event as served by the events route.
type EventRecord struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
	At   time.Time       `json:"at"`
}

type EventsResponse struct {
	Success bool          `json:"success"`
	GameID  string        `json:"gameId"`
	Events  []EventRecord `json:"events"`
}

type ActiveSessionsResponse struct {
	Success  bool     `json:"success"`
	Sessions []string `json:"sessions"`
}
