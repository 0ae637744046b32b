package layers

import (
	"image/color"
	"log/slog"

	"github.com/ivlev/frameforge/internal/captions"
	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/timeline"
)

// CursorLayer draws the recorded cursor position on top of the screen layer.
// It depends on the screen layer having been prepared for the same frame.
type CursorLayer struct {
	screen *ScreenLayer
	log    *slog.Logger

	x, y, r float64
	color   color.NRGBA
	visible bool
}

func NewCursorLayer(screen *ScreenLayer, log *slog.Logger) *CursorLayer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CursorLayer{screen: screen, log: log}
}

func (l *CursorLayer) Name() string { return "cursor" }

func (l *CursorLayer) Prepare(fc *FrameContext) {
	l.visible = false
	if fc.Project == nil || fc.Project.Cursor.Hide {
		return
	}
	cfg := fc.Project.Cursor
	ev, ok := timeline.CursorAt(cfg.Events, fc.SourceTime)
	if !ok {
		return
	}
	x, y, ok := l.screen.Project(ev.X, ev.Y)
	if !ok {
		return
	}

	l.x, l.y = x, y
	l.r = cfg.Size * float64(fc.Height) / captions.ReferenceHeight * max(fc.Zoom.Amount, 1)
	l.color = captions.ParseColor(cfg.Color, 0.9).NRGBA()
	l.visible = true
}

func (l *CursorLayer) Render(pass *gpu.RenderPass) {
	if !l.visible {
		return
	}
	if err := pass.FillCircle(l.x, l.y, l.r, l.color); err != nil {
		l.log.Warn("cursor draw failed", "error", err)
	}
}

// Position is the cursor center in output pixels, if one is drawn this frame.
func (l *CursorLayer) Position() (x, y float64, ok bool) {
	return l.x, l.y, l.visible
}
