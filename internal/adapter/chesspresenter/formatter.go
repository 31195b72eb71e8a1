package chesspresenter

import (
	"strings"

	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/park285/Cheese-PvP-server/internal/msgcat"
)

// Formatter renders human-readable texts from the message catalog. Every
// lookup carries an English fallback so a trimmed override file never yields
// an empty message.
type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{cat: cat}
}

func (f *Formatter) Text(key, fallback string, data any) string {
	if f == nil {
		return fallback
	}
	return f.cat.Text(key, fallback, data)
}

// Violation explains why a move was rejected.
func (f *Formatter) Violation(v chess.Violation) string {
	return f.Text("move.violation."+string(v), v.String(), nil)
}

// GameOver summarises a finished game.
func (f *Formatter) GameOver(result, winner string) string {
	switch result {
	case "checkmate":
		name := capitalize(winner)
		return f.Text("game.over.checkmate", "Checkmate. "+name+" wins", map[string]any{"Winner": name})
	case "stalemate":
		return f.Text("game.over.stalemate", "Stalemate. The game is drawn", nil)
	}
	return result
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
