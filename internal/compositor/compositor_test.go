package compositor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"slices"
	"testing"

	"github.com/ivlev/frameforge/internal/captions"
	"github.com/ivlev/frameforge/internal/gpu"
	"github.com/ivlev/frameforge/internal/metrics"
	"github.com/ivlev/frameforge/internal/project"
	"github.com/ivlev/frameforge/internal/source"
	"github.com/ivlev/frameforge/internal/timeline"
)

var hd = captions.OutputSize{Width: 1280, Height: 720}

func mode(m project.SceneMode) *project.SceneMode { return &m }

func fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func testProject() *project.Configuration {
	return &project.Configuration{
		Background: "#0000FF",
		Timeline: &project.TimelineConfiguration{
			SceneSegments: []project.SceneSegment{
				{Start: 0, End: 5, Mode: mode(project.SceneModeDefault)},
				{Start: 5, End: 10, Mode: mode(project.SceneModeCameraOnly)},
				{Start: 10, End: 15, Mode: mode(project.SceneModeHideCamera)},
			},
		},
		Captions: &project.CaptionsData{
			Settings: project.DefaultCaptionSettings(),
			Segments: []project.CaptionSegment{
				{ID: "a", Start: 0, End: 2, Text: "First caption"},
				{ID: "b", Start: 2, End: 4, Text: "Second caption"},
			},
		},
		Cursor: project.CursorConfiguration{Size: 12, Color: "#FFFFFF"},
		Camera: project.CameraConfiguration{Size: 0.25, Position: "bottom-right"},
	}
}

func newCompositor(t *testing.T, proj *project.Configuration, opts Options) *Compositor {
	t.Helper()
	c, err := New(gpu.NewDevice(), proj, hd, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewValidates(t *testing.T) {
	if _, err := New(gpu.NewDevice(), nil, hd, Options{}); err == nil {
		t.Error("Expected error for nil project")
	}
	if _, err := New(gpu.NewDevice(), testProject(), captions.OutputSize{}, Options{}); err == nil {
		t.Error("Expected error for empty output size")
	}
}

func TestPlanGatesLayers(t *testing.T) {
	c := newCompositor(t, testProject(), Options{})

	tests := []struct {
		time    float64
		mode    project.SceneMode
		hasMode bool
		layers  []string
	}{
		{2.5, project.SceneModeDefault, true, []string{"screen", "camera", "cursor", "captions"}},
		{7.5, project.SceneModeCameraOnly, true, []string{"camera", "captions"}},
		{12.5, project.SceneModeHideCamera, true, []string{"screen", "cursor", "captions"}},
		{20, project.SceneModeDefault, false, []string{"screen", "camera", "cursor", "captions"}},
	}

	for _, tt := range tests {
		p := c.Plan(tt.time)
		if p.Mode != tt.mode || p.HasMode != tt.hasMode {
			t.Errorf("Plan(%v): expected mode (%q, %v), got (%q, %v)", tt.time, tt.mode, tt.hasMode, p.Mode, p.HasMode)
		}
		if !slices.Equal(p.Layers, tt.layers) {
			t.Errorf("Plan(%v): expected layers %v, got %v", tt.time, tt.layers, p.Layers)
		}
	}
}

func TestComposeSceneModes(t *testing.T) {
	c := newCompositor(t, testProject(), Options{})
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	frames := &source.SegmentFrames{
		Screen: fill(1280, 720, red),
		Camera: fill(320, 180, green),
	}

	tests := []struct {
		time   float64
		center color.RGBA
		corner color.RGBA
	}{
		{1, red, green},     // screen with camera overlay
		{7.5, green, green}, // camera fills the frame
		{12.5, red, red},    // camera hidden
	}

	for _, tt := range tests {
		f, err := c.Compose(tt.time, frames)
		if err != nil {
			t.Fatalf("Compose(%v) failed: %v", tt.time, err)
		}
		if got := f.Image.RGBAAt(640, 200); got != tt.center {
			t.Errorf("Compose(%v): expected center %+v, got %+v", tt.time, tt.center, got)
		}
		if got := f.Image.RGBAAt(1200, 650); got != tt.corner {
			t.Errorf("Compose(%v): expected corner %+v, got %+v", tt.time, tt.corner, got)
		}
		f.Release()
	}
}

func TestComposeCaptionEndToEnd(t *testing.T) {
	m := metrics.New()
	c := newCompositor(t, testProject(), Options{Metrics: m})
	blue := color.RGBA{B: 255, A: 255}

	f, err := c.Compose(1.0, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	defer f.Release()

	s := c.Captions().State()
	if !s.Visible || s.Text != "First caption" {
		t.Fatalf("Expected first caption at 1.0, got %+v", s)
	}
	wantTop := int(float32(hd.Height) * 0.85)
	if s.Bounds.Top != wantTop {
		t.Errorf("Expected caption top at %d, got %d", wantTop, s.Bounds.Top)
	}

	for y := 0; y < 600; y += 10 {
		if got := f.Image.RGBAAt(640, y); got != blue {
			t.Fatalf("Expected background above the caption at y=%d, got %+v", y, got)
		}
	}
	touched := false
	for y := wantTop; y < s.Bounds.Bottom && !touched; y++ {
		touched = f.Image.RGBAAt(640, y) != blue
	}
	if !touched {
		t.Error("Expected caption pixels below the anchor")
	}

	f2, err := c.Compose(2.5, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	defer f2.Release()
	if got := c.Captions().State().Text; got != "Second caption" {
		t.Errorf("Expected second caption at 2.5, got %q", got)
	}
	if f2.Seq <= f.Seq {
		t.Errorf("Expected increasing sequence, got %d then %d", f.Seq, f2.Seq)
	}
}

func TestComposeParsedPartialSettings(t *testing.T) {
	proj, err := project.Parse([]byte(`
background: "#0000FF"
captions:
  settings: {enabled: true, position: bottom}
  segments:
    - {start: 0, end: 2.5, text: "Welcome to the demo"}
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	c := newCompositor(t, proj, Options{})

	f, err := c.Compose(1.0, nil)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	defer f.Release()

	s := c.Captions().State()
	if !s.Visible || s.Background == nil {
		t.Fatalf("Expected visible caption with background, got %+v", s)
	}
	wantTop := int(float32(hd.Height) * 0.85)
	if s.Bounds.Top != wantTop || s.Bounds.Bottom <= wantTop {
		t.Fatalf("Expected caption box from %d, got %+v", wantTop, s.Bounds)
	}

	white := 0
	for y := wantTop; y < s.Bounds.Bottom; y++ {
		for x := 0; x < hd.Width; x++ {
			if p := f.Image.RGBAAt(x, y); p.R > 200 && p.G > 200 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("Expected white caption text below the anchor")
	}
}

type fakeFrames struct {
	img   image.Image
	calls []float64
}

func (f *fakeFrames) Frames(_ context.Context, pos timeline.ClipPosition) (*source.SegmentFrames, error) {
	f.calls = append(f.calls, pos.SourceTime)
	return &source.SegmentFrames{Clip: pos, Screen: f.img}, nil
}

func TestRenderFrame(t *testing.T) {
	proj := testProject()
	proj.Timeline.Segments = []project.ClipSegment{{Start: 10, End: 20, Timescale: 1}}
	provider := &fakeFrames{img: fill(64, 36, color.RGBA{R: 255, A: 255})}
	c := newCompositor(t, proj, Options{Frames: provider})
	ctx := context.Background()

	f, err := c.RenderFrame(ctx, 3)
	if err != nil {
		t.Fatalf("RenderFrame failed: %v", err)
	}
	f.Release()
	if len(provider.calls) != 1 || provider.calls[0] != 13 {
		t.Errorf("Expected decode at source time 13, got %v", provider.calls)
	}

	if _, err := c.RenderFrame(ctx, 10); !errors.Is(err, source.ErrNoFrame) {
		t.Errorf("Expected ErrNoFrame past the timeline, got %v", err)
	}

	bare := newCompositor(t, proj, Options{})
	if _, err := bare.RenderFrame(ctx, 1); err == nil {
		t.Error("Expected error without a frame provider")
	}
}

func TestRenderStats(t *testing.T) {
	c := newCompositor(t, testProject(), Options{})
	if s := c.RenderStats(); s.Draws != 0 || s.AtlasEntries != 0 {
		t.Errorf("Expected empty stats before the first frame, got %+v", s)
	}

	for _, ts := range []float64{1.0, 1.5} {
		f, err := c.Compose(ts, nil)
		if err != nil {
			t.Fatalf("Compose failed: %v", err)
		}
		f.Release()
	}

	s := c.RenderStats()
	if s.Draws == 0 || s.BufferWrites == 0 {
		t.Errorf("Expected draws and buffer writes, got %+v", s)
	}
	if s.AtlasEntries == 0 {
		t.Error("Expected caption lines in the atlas")
	}
	if s.AtlasHitRate <= 0 {
		t.Errorf("Expected atlas hits on the repeated caption, got %v", s.AtlasHitRate)
	}
}
