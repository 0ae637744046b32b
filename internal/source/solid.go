package source

import (
	"context"
	"image"
	"image/draw"

	"github.com/ivlev/frameforge/internal/captions"
)

// Solid is a single-color still, used as a placeholder screen.
type Solid struct {
	img *image.RGBA
}

// NewSolid creates a width x height still of the hex color. Non-positive
// sizes default to 1920x1080.
func NewSolid(hex string, width, height int) *Solid {
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	c := captions.ParseColor(hex, 1)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	u := image.NewUniform(c.NRGBA())
	draw.Draw(img, img.Bounds(), u, image.Point{}, draw.Src)
	return &Solid{img: img}
}

func (s *Solid) FrameAt(ctx context.Context, t float64) (image.Image, error) {
	if t < 0 {
		return nil, ErrNoFrame
	}
	return s.img, ctx.Err()
}

func (s *Solid) Duration() float64 { return 0 }

func (s *Solid) Close() error { return nil }
