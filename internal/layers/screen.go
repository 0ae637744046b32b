package layers

import (
	"image"
	"math"

	"github.com/ivlev/frameforge/internal/gpu"
)

// ScreenLayer draws the screen recording letterboxed into the frame, cropped
// around the zoom focus.
type ScreenLayer struct {
	img     image.Image
	src     image.Rectangle
	dst     image.Rectangle
	visible bool
}

func NewScreenLayer() *ScreenLayer { return &ScreenLayer{} }

func (l *ScreenLayer) Name() string { return "screen" }

func (l *ScreenLayer) Prepare(fc *FrameContext) {
	l.img = fc.Screen
	l.visible = fc.Screen != nil
	if !l.visible {
		return
	}

	sb := fc.Screen.Bounds()
	l.dst = fit(sb.Size(), fc.Width, fc.Height)

	amount := math.Max(fc.Zoom.Amount, 1)
	cw := float64(sb.Dx()) / amount
	ch := float64(sb.Dy()) / amount
	cx := float64(sb.Min.X) + fc.Zoom.Focus.X*float64(sb.Dx())
	cy := float64(sb.Min.Y) + fc.Zoom.Focus.Y*float64(sb.Dy())
	x0 := math.Min(math.Max(cx-cw/2, float64(sb.Min.X)), float64(sb.Max.X)-cw)
	y0 := math.Min(math.Max(cy-ch/2, float64(sb.Min.Y)), float64(sb.Max.Y)-ch)
	l.src = image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x0+cw)), int(math.Round(y0+ch)),
	)
}

func (l *ScreenLayer) Render(pass *gpu.RenderPass) {
	if !l.visible {
		return
	}
	pass.DrawImage(l.img, l.dst, l.src)
}

// Project maps a point normalized to the full screen capture to output
// pixels. It reports false when the point is outside the visible crop.
func (l *ScreenLayer) Project(nx, ny float64) (x, y float64, ok bool) {
	if !l.visible || l.src.Empty() {
		return 0, 0, false
	}
	sb := l.img.Bounds()
	px := float64(sb.Min.X) + nx*float64(sb.Dx())
	py := float64(sb.Min.Y) + ny*float64(sb.Dy())
	if px < float64(l.src.Min.X) || px > float64(l.src.Max.X) || py < float64(l.src.Min.Y) || py > float64(l.src.Max.Y) {
		return 0, 0, false
	}
	x = float64(l.dst.Min.X) + (px-float64(l.src.Min.X))*float64(l.dst.Dx())/float64(l.src.Dx())
	y = float64(l.dst.Min.Y) + (py-float64(l.src.Min.Y))*float64(l.dst.Dy())/float64(l.src.Dy())
	return x, y, true
}

// Rect is where the screen was placed in the last prepared frame.
func (l *ScreenLayer) Rect() image.Rectangle { return l.dst }
