// Package compositor turns a project and decoded media into finished frames.
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/ivlev/frameforge/internal/captions"
	"github.com/ivlev/frameforge/internal/glyphs"
	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/layers"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/source"
	"github.com/ivlev/frameforge/internal/timeline"
)

// FrameProvider decodes the media for a clip position.
type FrameProvider interface {
	Frames(ctx context.Context, pos timeline.ClipPosition) (*source.SegmentFrames, error)
}

type Options struct {
	Fonts         glyphs.FontOptions
	AtlasCapacity int
	AtlasMaxSide  int
	// Frames feeds RenderFrame. Compose works without it.
	Frames  FrameProvider
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Frame is one composed output image. Release returns the image to the
// texture pool; the frame must not be used afterwards.
type Frame struct {
	Seq   uint64
	Time  float64
	Mode  project.SceneMode
	Image *image.RGBA

	tex *gpu.Texture
}

func (f *Frame) Release() {
	if f != nil && f.tex != nil {
		f.tex.Release()
	}
}

// Plan is the resolved layer stack for one output time.
type Plan struct {
	Time    float64
	Mode    project.SceneMode
	HasMode bool // false when no scene segment covers Time
	Zoom    timeline.ZoomState
	Layers  []string
}

// Compositor owns the layers of one render session. Compose and RenderFrame
// are serialized: one prepare/render pair runs at a time.
type Compositor struct {
	mu sync.Mutex

	dev        *gpu.Device
	proj       *project.Configuration
	size       captions.OutputSize
	fonts      *glyphs.FontSystem
	frames     FrameProvider
	background color.NRGBA
	log        *slog.Logger
	metrics    *metrics.Metrics

	screen   *layers.ScreenLayer
	camera   *layers.CameraLayer
	cursor   *layers.CursorLayer
	captions *layers.CaptionsLayer
	stack    []layers.Layer

	seq uint64
}

func New(dev *gpu.Device, proj *project.Configuration, size captions.OutputSize, opts Options) (*Compositor, error) {
	if proj == nil {
		return nil, fmt.Errorf("compositor: nil project")
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("compositor: invalid output size %dx%d", size.Width, size.Height)
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	fonts, err := glyphs.NewFontSystem(opts.Fonts, log)
	if err != nil {
		return nil, fmt.Errorf("compositor: %w", err)
	}
	capLayer, err := layers.NewCaptionsLayer(dev, layers.CaptionsOptions{
		Fonts:         fonts,
		AtlasCapacity: opts.AtlasCapacity,
		AtlasMaxSide:  opts.AtlasMaxSide,
		Logger:        log.With("layer", "captions"),
		Metrics:       opts.Metrics,
	})
	if err != nil {
		fonts.Close()
		return nil, fmt.Errorf("compositor: %w", err)
	}

	screen := layers.NewScreenLayer()
	c := &Compositor{
		dev:        dev,
		proj:       proj,
		size:       size,
		fonts:      fonts,
		frames:     opts.Frames,
		background: captions.ParseColor(proj.Background, 1).NRGBA(),
		log:        log,
		metrics:    opts.Metrics,
		screen:     screen,
		camera:     layers.NewCameraLayer(),
		cursor:     layers.NewCursorLayer(screen, log.With("layer", "cursor")),
		captions:   capLayer,
	}
	// Render order; captions stay on top.
	c.stack = []layers.Layer{c.screen, c.camera, c.cursor, c.captions}
	return c, nil
}

// Plan resolves the scene mode at t and the layers it allows.
func (c *Compositor) Plan(t float64) Plan {
	mode, ok := timeline.SceneModeAt(c.proj.Timeline, t)
	if !ok {
		mode = project.SceneModeDefault
	}
	p := Plan{
		Time:    t,
		Mode:    mode,
		HasMode: ok,
		Zoom:    timeline.ZoomAt(c.proj.Timeline, t),
	}
	for _, l := range c.gate(mode) {
		p.Layers = append(p.Layers, l.Name())
	}
	return p
}

// gate drops the layers the scene mode hides. It runs before any layer is
// prepared so hidden layers keep no state for the frame.
func (c *Compositor) gate(mode project.SceneMode) []layers.Layer {
	active := make([]layers.Layer, 0, len(c.stack))
	for _, l := range c.stack {
		switch {
		case mode == project.SceneModeCameraOnly && (l == layers.Layer(c.screen) || l == layers.Layer(c.cursor)):
			continue
		case mode == project.SceneModeHideCamera && l == layers.Layer(c.camera):
			continue
		}
		active = append(active, l)
	}
	return active
}

// Compose renders output time t from already decoded frames. A nil frames
// value renders the placeholder: background and captions only.
func (c *Compositor) Compose(t float64, frames *source.SegmentFrames) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := time.Now()

	plan := c.Plan(t)
	fc := &layers.FrameContext{
		Time:    t,
		Width:   c.size.Width,
		Height:  c.size.Height,
		Mode:    plan.Mode,
		Zoom:    plan.Zoom,
		Project: c.proj,
	}
	if frames != nil {
		fc.SourceTime = frames.Clip.SourceTime
		fc.Screen = frames.Screen
		fc.Camera = frames.Camera
	} else if pos, ok := timeline.ClipAt(c.proj.Timeline, t); ok {
		fc.SourceTime = pos.SourceTime
	}

	active := c.gate(plan.Mode)
	for _, l := range active {
		l.Prepare(fc)
	}

	tex := c.dev.CreateTexture(c.size.Width, c.size.Height)
	pass := c.dev.BeginRenderPass(tex, c.background)
	for _, l := range active {
		l.Render(pass)
	}
	if err := pass.End(); err != nil {
		tex.Release()
		return nil, fmt.Errorf("compositor: frame at %.3fs: %w", t, err)
	}

	c.seq++
	c.metrics.ObserveCompose(time.Since(start).Seconds())
	return &Frame{
		Seq:   c.seq,
		Time:  t,
		Mode:  plan.Mode,
		Image: tex.Image(),
		tex:   tex,
	}, nil
}

// RenderFrame decodes the media at output time t and composes it.
func (c *Compositor) RenderFrame(ctx context.Context, t float64) (*Frame, error) {
	if c.frames == nil {
		return nil, fmt.Errorf("compositor: no frame provider")
	}
	pos, ok := timeline.ClipAt(c.proj.Timeline, t)
	if !ok {
		return nil, fmt.Errorf("%w: %.3fs is outside the timeline", source.ErrNoFrame, t)
	}
	frames, err := c.frames.Frames(ctx, pos)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Compose(t, frames)
}

// CaptionState snapshots the captions layer between frames.
func (c *Compositor) CaptionState() layers.CaptionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.captions.State()
}

func (c *Compositor) Captions() *layers.CaptionsLayer { return c.captions }

// RenderStats are lifetime counters of the device and the caption glyph atlas.
type RenderStats struct {
	BufferWrites uint64  `json:"bufferWrites"`
	Draws        uint64  `json:"draws"`
	AtlasEntries int     `json:"atlasEntries"`
	AtlasHitRate float64 `json:"atlasHitRate"`
}

func (c *Compositor) RenderStats() RenderStats {
	dev := c.dev.Stats()
	atlas := c.captions.Atlas().Stats()
	return RenderStats{
		BufferWrites: dev.BufferWrites,
		Draws:        dev.Draws,
		AtlasEntries: atlas.Len,
		AtlasHitRate: atlas.HitRate,
	}
}

func (c *Compositor) Close() error {
	return c.fonts.Close()
}
