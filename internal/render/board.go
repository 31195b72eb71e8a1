// Package render draws a session's board as a PNG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/park285/Cheese-PvP-server/internal/chess"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	DefaultSquareSize = 64
	minSquareSize     = 16
	maxSquareSize     = 160
	margin            = 20
)

var (
	lightSquare     = color.RGBA{233, 207, 163, 255}
	darkSquare      = color.RGBA{187, 136, 96, 255}
	lastMoveOverlay = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	checkOverlay    = color.NRGBA{R: 220, G: 40, B: 40, A: 150}
	frameColor      = color.RGBA{28, 31, 46, 255}
	coordinateColor = color.RGBA{236, 239, 255, 255}
)

type Options struct {
	SquareSize int
	// Perspective is the color drawn at the bottom; white when empty.
	Perspective chess.Color
	LastMove    *chess.LastMove
	// InCheck marks the king of this color when set.
	InCheck chess.Color
}

// PNG renders b.
func PNG(ctx context.Context, b *chess.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}
	sq := opts.SquareSize
	if sq == 0 {
		sq = DefaultSquareSize
	}
	if sq < minSquareSize || sq > maxSquareSize {
		return nil, fmt.Errorf("square size %d out of range [%d,%d]", sq, minSquareSize, maxSquareSize)
	}
	flip := opts.Perspective == chess.Black

	total := sq*chess.BoardSize + margin*2
	img := image.NewRGBA(image.Rect(0, 0, total, total))
	draw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, draw.Src)
	origin := image.Point{X: margin, Y: margin}

	rect := func(p chess.Position) image.Rectangle {
		row, col := p.Row, p.Col
		if flip {
			row, col = chess.BoardSize-1-row, chess.BoardSize-1-col
		}
		x := origin.X + col*sq
		y := origin.Y + row*sq
		return image.Rect(x, y, x+sq, y+sq)
	}

	for r := 0; r < chess.BoardSize; r++ {
		for c := 0; c < chess.BoardSize; c++ {
			draw.Draw(img, rect(chess.Pos(r, c)), image.NewUniform(squareColor(r, c)), image.Point{}, draw.Src)
		}
	}
	if lm := opts.LastMove; lm != nil {
		for _, p := range []chess.Position{lm.From, lm.To} {
			if p.InBounds() {
				draw.Draw(img, rect(p), image.NewUniform(lastMoveOverlay), image.Point{}, draw.Over)
			}
		}
	}
	if opts.InCheck.Valid() {
		if k, ok := b.FindKing(opts.InCheck); ok {
			draw.Draw(img, rect(k), image.NewUniform(checkOverlay), image.Point{}, draw.Over)
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var drawErr error
	b.Each(func(pos chess.Position, p chess.Piece) {
		if drawErr != nil {
			return
		}
		glyph, err := pieceImage(p, sq)
		if err != nil {
			drawErr = err
			return
		}
		draw.Draw(img, rect(pos), glyph, image.Point{}, draw.Over)
	})
	if drawErr != nil {
		return nil, drawErr
	}
	drawCoordinates(img, sq, origin, flip)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// a1 (row 7, col 0) is dark.
func squareColor(row, col int) color.Color {
	if (row+col)%2 == 1 {
		return darkSquare
	}
	return lightSquare
}

func drawCoordinates(dst draw.Image, sq int, origin image.Point, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Src: image.NewUniform(coordinateColor), Face: face}
	ascent := face.Metrics().Ascent.Ceil()
	bottom := origin.Y + chess.BoardSize*sq

	for i := 0; i < chess.BoardSize; i++ {
		row, col := i, i
		if flip {
			row, col = chess.BoardSize-1-i, chess.BoardSize-1-i
		}
		rank := fmt.Sprintf("%d", chess.BoardSize-row)
		file := string(rune('a' + col))
		center := origin.Y + i*sq + sq/2
		drawCentered(drawer, rank, origin.X/2, center+ascent/2)
		drawCentered(drawer, file, origin.X+i*sq+sq/2, bottom+ascent+2)
	}
}

func drawCentered(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}
