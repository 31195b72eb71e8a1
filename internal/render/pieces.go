package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/park285/Cheese-PvP-server/internal/chess"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Glyph bodies on a 45x45 canvas.
var pieceShapes = map[chess.PieceType]string{
	chess.Pawn: `<circle cx="22.5" cy="13" r="5"/>
<path d="M16 36 L18 22 L27 22 L29 36 Z"/>
<rect x="11" y="36" width="23" height="4"/>`,
	chess.Rook: `<path d="M11 11 L15 11 L15 14 L20 14 L20 11 L25 11 L25 14 L30 14 L30 11 L34 11 L34 17 L31 20 L31 32 L14 32 L14 20 L11 17 Z"/>
<rect x="10" y="33" width="25" height="6"/>`,
	chess.Knight: `<path d="M14 39 L33 39 L33 34 C33 22 30 12 22 9 L20 6 L18 10 C14 12 11 17 10 22 L13 25 L17 22 L20 21 C17 26 14 30 14 34 Z"/>`,
	chess.Bishop: `<circle cx="22.5" cy="8" r="2.5"/>
<path d="M22.5 11 C16 16 15 24 17 29 L28 29 C30 24 29 16 22.5 11 Z"/>
<rect x="13" y="31" width="19" height="3"/>
<rect x="10" y="36" width="25" height="3"/>`,
	chess.Queen: `<path d="M9 16 L13 31 L32 31 L36 16 L29 25 L27 12 L22.5 24 L18 12 L16 25 Z"/>
<circle cx="9" cy="14" r="2"/>
<circle cx="18" cy="10" r="2"/>
<circle cx="27" cy="10" r="2"/>
<circle cx="36" cy="14" r="2"/>
<rect x="11" y="33" width="23" height="6"/>`,
	chess.King: `<path d="M21 4 L24 4 L24 7 L27 7 L27 10 L24 10 L24 14 L21 14 L21 10 L18 10 L18 7 L21 7 Z"/>
<path d="M12 32 C6 24 10 16 17 17 L22.5 22 L28 17 C35 16 39 24 33 32 Z"/>
<rect x="11" y="34" width="23" height="5"/>`,
}

var pieceInk = map[chess.Color][2]string{
	chess.White: {"#f8f8f4", "#1c1c1c"},
	chess.Black: {"#262626", "#0a0a0a"},
}

func pieceSVG(p chess.Piece) (string, error) {
	shape, ok := pieceShapes[p.Type]
	if !ok {
		return "", fmt.Errorf("no glyph for %q", p.Type)
	}
	ink, ok := pieceInk[p.Color]
	if !ok {
		return "", fmt.Errorf("no ink for %q", p.Color)
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45">`+
		`<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s</g></svg>`,
		ink[0], ink[1], shape), nil
}

type pieceCacheKey struct {
	typ   chess.PieceType
	color chess.Color
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceImage(p chess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{typ: p.Type, color: p.Color, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	src, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}
