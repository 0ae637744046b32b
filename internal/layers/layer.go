// Package layers implements the drawable layers of a composed frame. Every
// layer follows the same two-step contract: Prepare updates retained state
// for the frame, Render draws that state into the frame's pass. Neither step
// returns an error; per-frame failures are logged by the layer.
package layers

import (
	"image"
	"math"

	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/timeline"
)

type Layer interface {
	Name() string
	Prepare(fc *FrameContext)
	Render(pass *gpu.RenderPass)
}

// FrameContext is everything a layer may read while preparing one frame.
type FrameContext struct {
	Time       float64 // output time
	SourceTime float64 // recording time
	Width      int
	Height     int
	Mode       project.SceneMode
	Zoom       timeline.ZoomState
	Project    *project.Configuration
	Screen     image.Image // nil when no screen frame is available
	Camera     image.Image
}

// fit returns the largest rectangle with the aspect of src centered in w x h.
func fit(src image.Point, w, h int) image.Rectangle {
	if src.X <= 0 || src.Y <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(float64(w)/float64(src.X), float64(h)/float64(src.Y))
	dw := int(math.Round(float64(src.X) * scale))
	dh := int(math.Round(float64(src.Y) * scale))
	x := (w - dw) / 2
	y := (h - dh) / 2
	return image.Rect(x, y, x+dw, y+dh)
}
