package chessdto

// Outbound event types.
const (
	EventConnected            = "connected"
	EventGameCreated          = "gameCreated"
	EventGameJoined           = "gameJoined"
	EventOpponentJoined       = "opponentJoined"
	EventMoveMade             = "moveMade"
	EventInvalidMove          = "invalidMove"
	EventGameOver             = "gameOver"
	EventOpponentDisconnected = "opponentDisconnected"
	EventOpponentReconnected  = "opponentReconnected"
	EventSessionNotFound      = "sessionNotFound"
	EventSessionFull          = "sessionFull"
	EventError                = "error"
)

// Envelope is one outbound message.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type Connected struct {
	PlayerID string `json:"playerId"`
}

type GameCreated struct {
	GameID    string     `json:"gameId"`
	Color     string     `json:"color"`
	GameState *GameState `json:"gameState"`
}

type GameJoined struct {
	GameID      string     `json:"gameId"`
	Color       string     `json:"color"`
	GameState   *GameState `json:"gameState"`
	Reconnected bool       `json:"reconnected"`
}

type OpponentJoined struct {
	GameState *GameState `json:"gameState"`
}

type MoveMade struct {
	From          Coord      `json:"from"`
	To            Coord      `json:"to"`
	Piece         PieceDTO   `json:"piece"`
	CapturedPiece *PieceDTO  `json:"capturedPiece,omitempty"`
	Promotion     string     `json:"promotion,omitempty"`
	CurrentTurn   string     `json:"currentTurn"`
	GameState     *GameState `json:"gameState"`
}

type GameOver struct {
	Result    string     `json:"result"`
	Winner    string     `json:"winner,omitempty"`
	Message   string     `json:"message,omitempty"`
	GameState *GameState `json:"gameState"`
}

type InvalidMove struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Notice carries a human-readable message; used by the disconnect, reconnect,
// session and generic error events.
type Notice struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
