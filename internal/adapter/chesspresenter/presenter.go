package chesspresenter

import (
	"errors"

	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
	"github.com/park285/Cheese-PvP-server/internal/pvpchess"
	"github.com/park285/Cheese-PvP-server/pkg/chessdto"
)

// Presenter turns session results into outbound envelopes without knowing
// how they are delivered.
type Presenter struct {
	fmt *Formatter
}

func NewPresenter(cat *msgcat.Catalog) *Presenter {
	return &Presenter{fmt: NewFormatter(cat)}
}

func (p *Presenter) Formatter() *Formatter { return p.fmt }

func (p *Presenter) Connected(playerID string) chessdto.Envelope {
	return envelope(chessdto.EventConnected, chessdto.Connected{PlayerID: playerID})
}

func (p *Presenter) GameCreated(res *pvpchess.JoinResult) chessdto.Envelope {
	return envelope(chessdto.EventGameCreated, chessdto.GameCreated{
		GameID:    res.Session.ID,
		Color:     string(res.Color),
		GameState: ToDTOState(res.Session),
	})
}

func (p *Presenter) GameJoined(res *pvpchess.JoinResult, reconnected bool) chessdto.Envelope {
	return envelope(chessdto.EventGameJoined, chessdto.GameJoined{
		GameID:      res.Session.ID,
		Color:       string(res.Color),
		GameState:   ToDTOState(res.Session),
		Reconnected: reconnected,
	})
}

func (p *Presenter) OpponentJoined(s *pvpchess.Session) chessdto.Envelope {
	return envelope(chessdto.EventOpponentJoined, chessdto.OpponentJoined{GameState: ToDTOState(s)})
}

func (p *Presenter) MoveMade(res *pvpchess.MoveResult) chessdto.Envelope {
	return envelope(chessdto.EventMoveMade, chessdto.MoveMade{
		From:          ToCoord(res.Move.From),
		To:            ToCoord(res.Move.To),
		Piece:         ToDTOPiece(res.Piece),
		CapturedPiece: ToDTOPiecePtr(res.Captured),
		Promotion:     string(lastPromotion(res.Session)),
		CurrentTurn:   string(res.NextTurn),
		GameState:     ToDTOState(res.Session),
	})
}

// GameOver is sent instead of moveMade when a move ends the game.
func (p *Presenter) GameOver(s *pvpchess.Session) chessdto.Envelope {
	result := string(s.Status)
	return envelope(chessdto.EventGameOver, chessdto.GameOver{
		Result:    result,
		Winner:    string(s.Winner),
		Message:   p.fmt.GameOver(result, string(s.Winner)),
		GameState: ToDTOState(s),
	})
}

func (p *Presenter) OpponentDisconnected() chessdto.Envelope {
	return p.Notice(chessdto.EventOpponentDisconnected, "opponent.disconnected", "Your opponent has disconnected", "")
}

func (p *Presenter) OpponentReconnected() chessdto.Envelope {
	return p.Notice(chessdto.EventOpponentReconnected, "opponent.reconnected", "Your opponent has reconnected", "")
}

// Notice builds a message-only envelope from a catalog key.
func (p *Presenter) Notice(event, key, fallback, code string) chessdto.Envelope {
	return envelope(event, chessdto.Notice{Message: p.fmt.Text(key, fallback, nil), Code: code})
}

func (p *Presenter) InvalidMove(key, fallback, code string) chessdto.Envelope {
	return envelope(chessdto.EventInvalidMove, chessdto.InvalidMove{Error: p.fmt.Text(key, fallback, nil), Code: code})
}

// Failure maps a session manager or rules error to the envelope the
// originating client receives.
func (p *Presenter) Failure(err error, sessionID string) chessdto.Envelope {
	var me *chess.MoveError
	switch {
	case errors.As(err, &me):
		return envelope(chessdto.EventInvalidMove, chessdto.InvalidMove{
			Error: p.fmt.Violation(me.Violation),
			Code:  string(me.Violation),
		})
	case errors.Is(err, pvpchess.ErrNotActive):
		return p.InvalidMove("move.not_active", "Game is not active", chessdto.CodeNotActive)
	case errors.Is(err, pvpchess.ErrWrongTurn):
		return p.InvalidMove("move.wrong_turn", "Not your turn", chessdto.CodeWrongTurn)
	case errors.Is(err, pvpchess.ErrNotParticipant):
		return p.InvalidMove("move.not_in_game", "Not in a game", chessdto.CodeNotInGame)
	case errors.Is(err, pvpchess.ErrNotFound):
		return p.Notice(chessdto.EventSessionNotFound, "session.not_found", "Game not found", chessdto.CodeNotFound)
	case errors.Is(err, pvpchess.ErrFull):
		return p.Notice(chessdto.EventSessionFull, "session.full", "Game is full", chessdto.CodeFull)
	case errors.Is(err, pvpchess.ErrAlreadyConnected):
		return p.Notice(chessdto.EventError, "session.already_connected", "You are already connected to this game", chessdto.CodeAlreadyLive)
	case errors.Is(err, pvpchess.ErrCapacity):
		return p.Notice(chessdto.EventError, "session.capacity", "The server is not accepting new games right now", chessdto.CodeCapacity)
	case errors.Is(err, pvpchess.ErrInvalidArgs):
		return p.Notice(chessdto.EventError, "move.malformed", "Invalid move format", chessdto.CodeMalformed)
	}
	return envelope(chessdto.EventError, chessdto.Notice{
		Message: p.fmt.Text("error.internal", "Failed to process request", map[string]any{"GameID": sessionID}),
		Code:    chessdto.CodeInternal,
	})
}

func lastPromotion(s *pvpchess.Session) chess.PieceType {
	if s == nil || len(s.History) == 0 {
		return chess.NoPiece
	}
	return s.History[len(s.History)-1].Promotion
}

func envelope(typ string, data any) chessdto.Envelope {
	return chessdto.Envelope{Type: typ, Data: data}
}
