// Package compositor stitches captured viewport tiles into one full-page raster.
//
// Tiles arrive in the coordinate space of the page (CSS pixels). The captured bitmap can
// be larger than the window the page reported, because of zoom or device pixel ratio,
// so every request is rescaled into bitmap pixels before it touches the canvas.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
)

// ErrInvalidRequest is returned when a tile request cannot be placed on a canvas.
var ErrInvalidRequest = errors.New("invalid capture request")

// Canvas limits. MaxCanvasPixels keeps the RGBA buffer at or below 1 GiB.
const (
	MaxCanvasSide   = 1 << 20
	MaxCanvasPixels = 1 << 28
)

// CaptureRequest describes one tile reported by the page-side collaborator.
type CaptureRequest struct {
	// Complete is the fraction of the page captured once this tile is drawn (0..1)
	Complete float64 `json:"complete"`

	// X and Y are the tile offset within the full page
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// TotalWidth and TotalHeight are the full page dimensions
	TotalWidth  float64 `json:"totalWidth"`
	TotalHeight float64 `json:"totalHeight"`

	// WindowWidth is the viewport width the page expects the tile to have
	WindowWidth float64 `json:"windowWidth"`
}

// Scaled returns a copy with the geometry multiplied by factor.
func (r CaptureRequest) Scaled(factor float64) CaptureRequest {
	r.X *= factor
	r.Y *= factor
	r.TotalWidth *= factor
	r.TotalHeight *= factor
	return r
}

// Screenshot accumulates tiles for a single capture session.
type Screenshot struct {
	// Canvas is nil until the first tile is composited
	Canvas *image.RGBA

	// Scale is the bitmap/window ratio observed on the most recent tile
	Scale float64

	// Tiles counts the tiles drawn so far
	Tiles int
}

// NewScreenshot returns an empty accumulator.
func NewScreenshot() *Screenshot {
	return &Screenshot{Scale: 1}
}

// Empty reports whether no canvas has been allocated yet.
func (s *Screenshot) Empty() bool {
	return s == nil || s.Canvas == nil
}

// Bounds returns the canvas bounds, or the zero rectangle when empty.
func (s *Screenshot) Bounds() image.Rectangle {
	if s.Empty() {
		return image.Rectangle{}
	}
	return s.Canvas.Bounds()
}

// Compose draws tile onto acc at the position described by req and returns the
// accumulator together with the request expressed in bitmap pixels.
//
// The canvas is allocated on the first call, sized from the scaled totals. Later tiles
// overwrite whatever is already in their region; pixels outside the canvas are clipped.
func Compose(acc *Screenshot, tile image.Image, req CaptureRequest) (*Screenshot, CaptureRequest, error) {
	if tile == nil {
		return acc, req, fmt.Errorf("%w: nil tile", ErrInvalidRequest)
	}
	if req.WindowWidth <= 0 {
		return acc, req, fmt.Errorf("%w: window width must be positive, got %v", ErrInvalidRequest, req.WindowWidth)
	}
	if acc == nil {
		acc = NewScreenshot()
	}

	bounds := tile.Bounds()
	scale := 1.0
	if tileWidth := float64(bounds.Dx()); tileWidth != req.WindowWidth {
		scale = tileWidth / req.WindowWidth
		req = req.Scaled(scale)
	}
	acc.Scale = scale

	if acc.Canvas == nil {
		if err := checkCanvasSize(req.TotalWidth, req.TotalHeight); err != nil {
			return acc, req, err
		}
		acc.Canvas = image.NewRGBA(image.Rect(0, 0, int(req.TotalWidth), int(req.TotalHeight)))
	}

	x := int(math.Round(req.X))
	y := int(math.Round(req.Y))
	target := image.Rect(x, y, x+bounds.Dx(), y+bounds.Dy())
	draw.Draw(acc.Canvas, target, tile, bounds.Min, draw.Src)
	acc.Tiles++

	return acc, req, nil
}

// checkCanvasSize rejects sizes that truncate to zero, are not finite, or exceed the
// canvas limits. The checks run on floats so nothing overflows before the comparison.
func checkCanvasSize(width, height float64) error {
	if !(width >= 1) || !(height >= 1) {
		return fmt.Errorf("%w: page size %vx%v", ErrInvalidRequest, width, height)
	}
	if width > MaxCanvasSide || height > MaxCanvasSide || width*height > MaxCanvasPixels {
		return fmt.Errorf("%w: page size %vx%v exceeds canvas limit of %d pixels", ErrInvalidRequest, width, height, MaxCanvasPixels)
	}
	return nil
}
