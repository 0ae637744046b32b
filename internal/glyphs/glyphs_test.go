package glyphs

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/ivlev/frameforge/internal/gpu"
)

func newFonts(t *testing.T) *FontSystem {
	t.Helper()
	fs, err := NewFontSystem(FontOptions{}, nil)
	if err != nil {
		t.Fatalf("NewFontSystem failed: %v", err)
	}
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestFontSystemFaces(t *testing.T) {
	fs := newFonts(t)

	regular := fs.Face(Attrs{}, 24)
	if regular.Size() != 24 {
		t.Errorf("Expected size 24, got %v", regular.Size())
	}
	if fs.Face(Attrs{}, 24) != regular {
		t.Error("Expected cached face for the same attrs and size")
	}

	bold := fs.Face(Attrs{Bold: true}, 24)
	if bold.Advance("Caption") <= regular.Advance("Caption") {
		t.Error("Expected bold text to be wider than regular")
	}

	mono := fs.Face(Attrs{Family: Monospace}, 24)
	if mono.Advance("iii") != mono.Advance("WWW") {
		t.Error("Expected monospace advances to match")
	}

	// Serif falls back to sans-serif without a configured file.
	if fs.Face(Attrs{Family: Serif}, 24).Advance("Caption") != regular.Advance("Caption") {
		t.Error("Expected serif to fall back to sans-serif")
	}
}

func TestFontSystemBadPath(t *testing.T) {
	if _, err := NewFontSystem(FontOptions{SerifPath: "/nonexistent/serif.ttf"}, nil); err == nil {
		t.Error("Expected error for missing font file")
	}
}

func TestBufferWrapsAndCenters(t *testing.T) {
	fs := newFonts(t)
	b := NewBuffer(Metrics{FontSize: 20, LineHeight: 24})
	b.SetSize(200)
	gen := b.Generation()

	b.SetText(fs, strings.Repeat("caption words ", 8), Attrs{})

	if b.Generation() == gen {
		t.Error("Expected SetText to change the generation")
	}
	if b.LineCount() < 2 {
		t.Fatalf("Expected wrapped lines, got %d", b.LineCount())
	}
	for i, l := range b.Lines() {
		if l.Width > 200 {
			t.Errorf("Line %d is %v wide, exceeds 200", i, l.Width)
		}
		if l.X < 0 || l.X+l.Width > 200.5 {
			t.Errorf("Line %d not centered within width: x=%v w=%v", i, l.X, l.Width)
		}
		if strings.HasSuffix(l.Text, " ") {
			t.Errorf("Line %d keeps trailing space: %q", i, l.Text)
		}
	}
	if b.Height() != float32(b.LineCount())*24 {
		t.Errorf("Unexpected height %v", b.Height())
	}
}

func TestBufferHardBreaks(t *testing.T) {
	fs := newFonts(t)
	b := NewBuffer(Metrics{FontSize: 20, LineHeight: 24})
	b.SetSize(1000)
	b.SetText(fs, "one\ntwo", Attrs{})
	if b.LineCount() != 2 {
		t.Errorf("Expected 2 lines, got %d", b.LineCount())
	}
}

func TestAtlasCachesMasks(t *testing.T) {
	fs := newFonts(t)
	a := NewAtlas(fs, 0, 0)

	m1, err := a.Mask(Attrs{}, 32, "Hello")
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	m2, err := a.Mask(Attrs{}, 32, "Hello")
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if m1 != m2 {
		t.Error("Expected the second lookup to hit the cache")
	}
	if a.Len() != 1 {
		t.Errorf("Expected 1 cached mask, got %d", a.Len())
	}

	inked := 0
	for _, v := range m1.Mask.Pix {
		if v > 0 {
			inked++
		}
	}
	if inked == 0 {
		t.Error("Expected rasterized glyph coverage")
	}

	if _, err := a.Mask(Attrs{Bold: true}, 32, "Hello"); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if a.Len() != 2 {
		t.Errorf("Expected bold variant to be cached separately, got %d", a.Len())
	}
}

func TestAtlasFull(t *testing.T) {
	fs := newFonts(t)
	a := NewAtlas(fs, 0, 64)
	_, err := a.Mask(Attrs{}, 32, "a line far wider than sixty four pixels")
	if !errors.Is(err, ErrAtlasFull) {
		t.Errorf("Expected ErrAtlasFull, got %v", err)
	}
}

func TestRendererPartialFailure(t *testing.T) {
	fs := newFonts(t)
	r := NewRenderer(NewAtlas(fs, 0, 200))

	short := NewBuffer(Metrics{FontSize: 16, LineHeight: 20})
	short.SetSize(180)
	short.SetText(fs, "ok", Attrs{})

	long := NewBuffer(Metrics{FontSize: 16, LineHeight: 20})
	long.SetText(fs, strings.Repeat("x", 80), Attrs{}) // no width: a single line

	vp := Viewport{}
	vp.Update(320, 240)
	bounds := Bounds{Left: 0, Top: 0, Right: 320, Bottom: 240}
	err := r.Prepare(vp, []Area{
		{Buffer: long, Left: 0, Top: 0, Bounds: bounds, Color: color.NRGBA{A: 255}},
		{Buffer: short, Left: 10, Top: 100, Bounds: bounds, Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
	})
	if !errors.Is(err, ErrAtlasFull) {
		t.Fatalf("Expected ErrAtlasFull from oversized line, got %v", err)
	}
	if r.Prepared() != 1 || len(r.Areas()) != 2 {
		t.Fatalf("Expected 1 prepared mask of 2 areas, got %d/%d", r.Prepared(), len(r.Areas()))
	}

	dev := gpu.NewDevice()
	tex := dev.CreateTexture(320, 240)
	pass := dev.BeginRenderPass(tex, color.Black)
	if err := r.Render(pass); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lit := 0
	img := tex.Image()
	for y := 95; y < 130; y++ {
		for x := 0; x < 200; x++ {
			if img.RGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("Expected the prepared caption to be drawn")
	}
}

func TestRendererClipsToViewport(t *testing.T) {
	fs := newFonts(t)
	r := NewRenderer(NewAtlas(fs, 0, 0))
	b := NewBuffer(Metrics{FontSize: 16, LineHeight: 20})
	b.SetSize(100)
	b.SetText(fs, "hidden", Attrs{})

	err := r.Prepare(Viewport{Width: 100, Height: 100}, []Area{
		{Buffer: b, Left: 0, Top: 200, Bounds: Bounds{Left: 0, Top: 200, Right: 100, Bottom: 240}},
	})
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if r.Prepared() != 0 {
		t.Errorf("Expected nothing prepared outside the viewport, got %d", r.Prepared())
	}
}
