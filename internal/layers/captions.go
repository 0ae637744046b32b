package layers

import (
	"bytes"
	"errors"
	"log/slog"
	"math"

	"github.com/ivlev/frameforge/internal/captions"
	"github.com/ivlev/frameforge/internal/glyphs"
	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/timeline"
)

const (
	captionWidthRatio   = 0.9
	captionLineSpacing  = 1.2
	minBackgroundAlpha  = 0.01
	captionQuadVertices = 4
)

// outlineOffsets are the 8 compass directions around the primary text.
var outlineOffsets = [8][2]float32{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

var captionQuadIndices = []uint16{0, 1, 2, 2, 3, 0}

type CaptionsOptions struct {
	Fonts         *glyphs.FontSystem
	AtlasCapacity int // entries per shard, 0 for the default
	AtlasMaxSide  int // pixels, 0 for the default
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Background is the backdrop quad behind the caption, in output pixels.
type Background struct {
	Left, Top, Right, Bottom float32
	Color                    captions.RGBA
}

// shapeKey is everything that forces the text to be reshaped.
type shapeKey struct {
	text        string
	fingerprint captions.Fingerprint
	fontSize    float32
	width       float32
}

// CaptionsLayer draws at most one caption per frame. Shaped text, the glyph
// atlas and GPU buffers persist across frames; the text is reshaped only when
// its content, shape-affecting style or metrics change.
type CaptionsLayer struct {
	dev     *gpu.Device
	fonts   *glyphs.FontSystem
	atlas   *glyphs.Atlas
	text    *glyphs.Renderer
	log     *slog.Logger
	metrics *metrics.Metrics

	viewport       glyphs.Viewport
	settingsBuffer *gpu.Buffer
	settings       []byte
	pipeline       *gpu.RenderPipeline
	vertexBuffer   *gpu.Buffer
	indexBuffer    *gpu.Buffer
	vertices       []byte

	buffer     *glyphs.Buffer
	current    *shapeKey
	bounds     glyphs.Bounds
	background *Background
	visible    bool
	reshapes   uint64
	lastErr    error
}

func NewCaptionsLayer(dev *gpu.Device, opts CaptionsOptions) (*CaptionsLayer, error) {
	if opts.Fonts == nil {
		return nil, errors.New("layers: captions need a font system")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	settingsBuffer, err := dev.CreateBuffer(gpu.BufferDescriptor{
		Label: "caption settings",
		Size:  captions.UniformSize,
		Usage: gpu.UsageUniform | gpu.UsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	pipeline, err := dev.CreateRenderPipeline(gpu.PipelineDescriptor{
		Label: "caption background",
		Blend: gpu.BlendAlpha,
	})
	if err != nil {
		return nil, err
	}
	vertexBuffer, err := dev.CreateBuffer(gpu.BufferDescriptor{
		Label: "caption background vertices",
		Size:  captionQuadVertices * gpu.ColorVertexSize,
		Usage: gpu.UsageVertex | gpu.UsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	indexBuffer, err := dev.CreateBufferInit("caption background indices", gpu.UsageIndex,
		gpu.EncodeIndices(captionQuadIndices))
	if err != nil {
		return nil, err
	}

	atlas := glyphs.NewAtlas(opts.Fonts, opts.AtlasCapacity, opts.AtlasMaxSide)
	return &CaptionsLayer{
		dev:            dev,
		fonts:          opts.Fonts,
		atlas:          atlas,
		text:           glyphs.NewRenderer(atlas),
		log:            log,
		metrics:        opts.Metrics,
		settingsBuffer: settingsBuffer,
		pipeline:       pipeline,
		vertexBuffer:   vertexBuffer,
		indexBuffer:    indexBuffer,
	}, nil
}

func (l *CaptionsLayer) Name() string { return "captions" }

func (l *CaptionsLayer) Prepare(fc *FrameContext) {
	l.viewport.Update(fc.Width, fc.Height)

	// Disabled captions hide even when a segment matches.
	if fc.Project == nil || fc.Project.Captions == nil || !fc.Project.Captions.Settings.Enabled {
		l.hide()
		return
	}
	data := fc.Project.Captions
	seg, ok := timeline.CaptionAt(data.Segments, fc.Time)
	if !ok {
		l.hide()
		return
	}

	w, h := float32(fc.Width), float32(fc.Height)
	style := captions.Resolve(data.Settings, captions.OutputSize{Width: fc.Width, Height: fc.Height})
	l.uploadSettings(style)

	textWidth := w * captionWidthRatio
	lineHeight := style.FontSize * captionLineSpacing
	key := shapeKey{
		text:        seg.Text,
		fingerprint: style.Fingerprint(),
		fontSize:    style.FontSize,
		width:       textWidth,
	}
	if l.current == nil || *l.current != key {
		buf := glyphs.NewBuffer(glyphs.Metrics{FontSize: style.FontSize, LineHeight: lineHeight})
		buf.SetSize(textWidth)
		buf.SetText(l.fonts, seg.Text, attrsFor(style))
		l.buffer = buf
		l.current = &key
		l.reshapes++
		l.metrics.IncCaptionReshapes()
	}

	left := (w - textWidth) / 2
	top := style.Position.Anchor(h)
	lines := max(l.buffer.LineCount(), 1)
	l.bounds = glyphs.Bounds{
		Left:   int(math.Floor(float64(left))),
		Top:    int(math.Floor(float64(top))),
		Right:  int(math.Ceil(float64(left + textWidth))),
		Bottom: int(math.Ceil(float64(top + float32(lines)*lineHeight))),
	}

	l.updateBackground(style, left, top, fc.Width, fc.Height)

	if err := l.text.Prepare(l.viewport, l.areas(style, left, top, fc.Height)); err != nil {
		l.lastErr = err
		l.metrics.IncCaptionPrepareErrors()
		l.log.Warn("caption text prepare failed", "text", seg.Text, "error", err)
	} else {
		l.lastErr = nil
	}
	l.visible = true
}

func (l *CaptionsLayer) Render(pass *gpu.RenderPass) {
	if !l.visible {
		return
	}
	if l.background != nil {
		pass.SetPipeline(l.pipeline)
		pass.SetVertexBuffer(l.vertexBuffer)
		pass.SetIndexBuffer(l.indexBuffer)
		if err := pass.DrawIndexed(len(captionQuadIndices)); err != nil {
			l.log.Warn("caption background draw failed", "error", err)
		}
	}
	if err := l.text.Render(pass); err != nil {
		l.log.Warn("caption text render failed", "error", err)
	}
}

// hide drops the retained caption. GPU buffers stay allocated for reuse.
func (l *CaptionsLayer) hide() {
	l.visible = false
	l.current = nil
	l.buffer = nil
	l.background = nil
	l.bounds = glyphs.Bounds{}
	l.text.Reset()
}

func (l *CaptionsLayer) uploadSettings(style captions.Style) {
	b := style.Uniform().Bytes()
	if bytes.Equal(b, l.settings) {
		return
	}
	if err := l.dev.WriteBuffer(l.settingsBuffer, 0, b); err != nil {
		l.log.Warn("caption settings upload failed", "error", err)
		return
	}
	l.settings = b
}

// updateBackground sizes the backdrop to the shaped text plus half a font
// size of padding, and uploads the quad if it moved or changed color.
func (l *CaptionsLayer) updateBackground(style captions.Style, left, top float32, width, height int) {
	if style.Background[3] <= minBackgroundAlpha {
		l.background = nil
		return
	}

	lines := l.buffer.Lines()
	minX, maxX := float32(math.MaxFloat32), float32(0)
	for _, ln := range lines {
		minX = min(minX, ln.X)
		maxX = max(maxX, ln.X+ln.Width)
	}
	if len(lines) == 0 || maxX <= minX {
		minX, maxX = 0, 0
	}

	padding := style.FontSize * 0.5
	textHeight := float32(max(len(lines), 1)) * style.FontSize * captionLineSpacing
	bg := &Background{
		Left:   left + minX - padding,
		Right:  left + maxX + padding,
		Top:    top - padding*0.5,
		Bottom: top + textHeight + padding*0.5,
		Color:  style.Background,
	}
	l.background = bg

	w, h := float32(width), float32(height)
	ndcX := func(x float32) float32 { return x/w*2 - 1 }
	ndcY := func(y float32) float32 { return 1 - y/h*2 }
	quad := []gpu.ColorVertex{
		{Position: [2]float32{ndcX(bg.Left), ndcY(bg.Top)}, Color: bg.Color},
		{Position: [2]float32{ndcX(bg.Right), ndcY(bg.Top)}, Color: bg.Color},
		{Position: [2]float32{ndcX(bg.Right), ndcY(bg.Bottom)}, Color: bg.Color},
		{Position: [2]float32{ndcX(bg.Left), ndcY(bg.Bottom)}, Color: bg.Color},
	}
	data := gpu.EncodeColorVertices(quad)
	if bytes.Equal(data, l.vertices) {
		return
	}
	if err := l.dev.WriteBuffer(l.vertexBuffer, 0, data); err != nil {
		l.log.Warn("caption background upload failed", "error", err)
		l.background = nil
		return
	}
	l.vertices = data
}

// areas lists the outline copies first so they render underneath the
// primary text.
func (l *CaptionsLayer) areas(style captions.Style, left, top float32, height int) []glyphs.Area {
	areas := make([]glyphs.Area, 0, len(outlineOffsets)+1)
	if style.Outline {
		step := float32(max(1, math.Round(float64(height)/captions.ReferenceHeight)))
		outline := style.OutlineColor.NRGBA()
		for _, off := range outlineOffsets {
			areas = append(areas, glyphs.Area{
				Buffer: l.buffer,
				Left:   left + off[0]*step,
				Top:    top + off[1]*step,
				Bounds: l.bounds,
				Color:  outline,
			})
		}
	}
	return append(areas, glyphs.Area{
		Buffer: l.buffer,
		Left:   left,
		Top:    top,
		Bounds: l.bounds,
		Color:  style.Color.NRGBA(),
	})
}

func attrsFor(style captions.Style) glyphs.Attrs {
	family := glyphs.SansSerif
	switch style.Font {
	case captions.FontSerif:
		family = glyphs.Serif
	case captions.FontMonospace:
		family = glyphs.Monospace
	}
	return glyphs.Attrs{Family: family, Bold: style.Bold, Italic: style.Italic}
}

// CaptionState is a snapshot of the layer for diagnostics and tests.
type CaptionState struct {
	Visible    bool
	Text       string
	Lines      int
	Bounds     glyphs.Bounds
	Background *Background
	Reshapes   uint64
	Generation uint64 // shaped buffer generation, 0 when hidden
	Areas      []glyphs.Area
	Err        error // last text prepare error
}

func (l *CaptionsLayer) State() CaptionState {
	s := CaptionState{
		Visible:  l.visible,
		Bounds:   l.bounds,
		Reshapes: l.reshapes,
		Areas:    append([]glyphs.Area(nil), l.text.Areas()...),
		Err:      l.lastErr,
	}
	if l.buffer != nil {
		s.Text = l.buffer.Text()
		s.Lines = l.buffer.LineCount()
		s.Generation = l.buffer.Generation()
	}
	if l.background != nil {
		bg := *l.background
		s.Background = &bg
	}
	return s
}

// Atlas exposes the glyph atlas for cache statistics.
func (l *CaptionsLayer) Atlas() *glyphs.Atlas { return l.atlas }

// SettingsBuffer is the uniform buffer holding the resolved style.
func (l *CaptionsLayer) SettingsBuffer() *gpu.Buffer { return l.settingsBuffer }
