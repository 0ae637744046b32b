package layers

import (
	"image"
	"math"

	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/project"
)

// CameraLayer draws the camera as a corner overlay, or fills the frame in
// camera-only scenes.
type CameraLayer struct {
	img     image.Image
	dst     image.Rectangle
	visible bool
}

func NewCameraLayer() *CameraLayer { return &CameraLayer{} }

func (l *CameraLayer) Name() string { return "camera" }

func (l *CameraLayer) Prepare(fc *FrameContext) {
	l.img = fc.Camera
	l.visible = fc.Camera != nil
	if !l.visible {
		return
	}

	size := fc.Camera.Bounds().Size()
	if fc.Mode == project.SceneModeCameraOnly {
		l.dst = fit(size, fc.Width, fc.Height)
		return
	}

	cfg := project.CameraConfiguration{Size: 0.25, Position: "bottom-right"}
	if fc.Project != nil {
		cfg = fc.Project.Camera
	}
	dw := int(math.Round(float64(fc.Width) * cfg.Size))
	dh := int(math.Round(float64(dw) * float64(size.Y) / float64(size.X)))
	margin := int(math.Round(float64(min(fc.Width, fc.Height)) * 0.02))

	x, y := fc.Width-dw-margin, fc.Height-dh-margin
	switch cfg.Position {
	case "top-left":
		x, y = margin, margin
	case "top-right":
		y = margin
	case "bottom-left":
		x = margin
	}
	l.dst = image.Rect(x, y, x+dw, y+dh)
}

func (l *CameraLayer) Render(pass *gpu.RenderPass) {
	if !l.visible {
		return
	}
	pass.DrawImage(l.img, l.dst, l.img.Bounds())
}

// Rect is where the camera was placed in the last prepared frame.
func (l *CameraLayer) Rect() image.Rectangle { return l.dst }
