package glyphs

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/ivlev/frameforge/internal/gpu"
)

// Bounds is a clip rectangle in pixels.
type Bounds struct {
	Left, Top, Right, Bottom int
}

func (b Bounds) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

// Viewport is the size of the target the renderer draws into.
type Viewport struct {
	Width, Height int
}

func (v *Viewport) Update(width, height int) {
	v.Width, v.Height = width, height
}

// Area places a buffer at Left/Top, clipped to Bounds, in one color.
type Area struct {
	Buffer *Buffer
	Left   float32
	Top    float32
	Bounds Bounds
	Color  color.NRGBA
}

type preparedMask struct {
	mask  *image.Alpha
	at    image.Point
	clip  image.Rectangle
	color color.NRGBA
}

// Renderer turns areas into positioned masks on Prepare and draws them on Render.
type Renderer struct {
	atlas    *Atlas
	areas    []Area
	prepared []preparedMask
}

func NewRenderer(atlas *Atlas) *Renderer {
	return &Renderer{atlas: atlas}
}

// Prepare resolves every line of every area through the atlas, replacing the
// previous batch. Lines that fail are skipped; their errors are joined and
// returned while the rest of the batch stays drawable.
func (r *Renderer) Prepare(vp Viewport, areas []Area) error {
	r.areas = append(r.areas[:0], areas...)
	r.prepared = r.prepared[:0]

	view := image.Rect(0, 0, vp.Width, vp.Height)
	var errs []error
	for _, a := range areas {
		if a.Buffer == nil {
			continue
		}
		clip := a.Bounds.Rect().Intersect(view)
		if clip.Empty() {
			continue
		}
		m := a.Buffer.Metrics()
		for i, line := range a.Buffer.Lines() {
			if line.Text == "" {
				continue
			}
			lm, err := r.atlas.Mask(a.Buffer.Attrs(), m.FontSize, line.Text)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			x := a.Left + line.X
			y := a.Top + float32(i)*m.LineHeight
			r.prepared = append(r.prepared, preparedMask{
				mask:  lm.Mask,
				at:    image.Pt(round(x)+lm.Offset.X, round(y)+lm.Offset.Y),
				clip:  clip,
				color: a.Color,
			})
		}
	}
	return errors.Join(errs...)
}

// Render draws the prepared batch in area order.
func (r *Renderer) Render(pass *gpu.RenderPass) error {
	if pass == nil {
		return errors.New("glyphs: render without pass")
	}
	for _, p := range r.prepared {
		pass.DrawMask(p.mask, p.at, p.clip, p.color)
	}
	return nil
}

// Areas returns the areas of the last Prepare, in submission order.
func (r *Renderer) Areas() []Area { return r.areas }

// Prepared is the number of line masks ready to draw.
func (r *Renderer) Prepared() int { return len(r.prepared) }

// Reset drops the prepared batch.
func (r *Renderer) Reset() {
	r.areas = r.areas[:0]
	r.prepared = r.prepared[:0]
}

func round(v float32) int { return int(math.Round(float64(v))) }
