package gpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gg/render"
	xdraw "golang.org/x/image/draw"
)

// RenderPass records draws into one texture. Draws execute immediately in
// submission order; a pass must not be shared between goroutines.
type RenderPass struct {
	dev    *Device
	img    *image.RGBA
	target *render.PixmapTarget
	scene  *render.Scene

	pipeline *RenderPipeline
	vertices *Buffer
	indices  *Buffer

	draws int
}

// BeginRenderPass starts a pass on tex. A non-nil clear color is the load op;
// nil keeps the existing contents.
func (d *Device) BeginRenderPass(tex *Texture, clear color.Color) *RenderPass {
	p := &RenderPass{
		dev:    d,
		img:    tex.img,
		target: render.NewPixmapTargetFromImage(tex.img),
		scene:  render.NewScene(),
	}
	if clear != nil {
		p.target.Clear(clear)
	}
	return p
}

func (p *RenderPass) Size() (width, height int) {
	return p.img.Rect.Dx(), p.img.Rect.Dy()
}

// Draws is the number of draw calls recorded so far.
func (p *RenderPass) Draws() int { return p.draws }

func (p *RenderPass) SetPipeline(pl *RenderPipeline) { p.pipeline = pl }
func (p *RenderPass) SetVertexBuffer(b *Buffer)      { p.vertices = b }
func (p *RenderPass) SetIndexBuffer(b *Buffer)       { p.indices = b }

// DrawIndexed rasterizes indexCount indices as a triangle list of ColorVertex
// data. Triangles of one call are filled as a single path so shared edges do
// not blend twice. Color is flat, taken from the first vertex.
func (p *RenderPass) DrawIndexed(indexCount int) error {
	switch {
	case p.pipeline == nil:
		return errors.New("gpu: draw without pipeline")
	case p.vertices == nil || p.vertices.usage&UsageVertex == 0:
		return errors.New("gpu: draw without vertex buffer")
	case p.indices == nil || p.indices.usage&UsageIndex == 0:
		return errors.New("gpu: draw without index buffer")
	case indexCount%3 != 0:
		return fmt.Errorf("gpu: index count %d is not a triangle list", indexCount)
	}

	verts := DecodeColorVertices(p.vertices.Bytes())
	idx := DecodeIndices(p.indices.Bytes())
	if indexCount > len(idx) {
		return fmt.Errorf("gpu: index count %d exceeds buffer (%d)", indexCount, len(idx))
	}
	if indexCount == 0 {
		return nil
	}

	w, h := p.Size()
	p.scene.Reset()
	for tri := 0; tri < indexCount; tri += 3 {
		for k := 0; k < 3; k++ {
			i := int(idx[tri+k])
			if i >= len(verts) {
				return fmt.Errorf("gpu: index %d out of range (%d vertices)", i, len(verts))
			}
			x, y := ndcToPixel(verts[i].Position, w, h)
			if k == 0 {
				p.scene.MoveTo(x, y)
			} else {
				p.scene.LineTo(x, y)
			}
		}
		p.scene.ClosePath()
	}

	c := verts[idx[0]].Color
	if p.pipeline.blend == BlendReplace {
		c[3] = 1
	}
	p.scene.SetFillColor(toNRGBA(c))
	p.scene.Fill()

	return p.submit()
}

// FillCircle draws an anti-aliased disc in pixel coordinates.
func (p *RenderPass) FillCircle(cx, cy, r float64, c color.Color) error {
	p.scene.Reset()
	p.scene.SetFillColor(c)
	p.scene.Circle(cx, cy, r)
	p.scene.Fill()
	return p.submit()
}

// DrawImage scales the sr part of src into dst with bilinear filtering.
func (p *RenderPass) DrawImage(src image.Image, dst, sr image.Rectangle) {
	if dst.Empty() || sr.Empty() {
		return
	}
	xdraw.BiLinear.Scale(p.img, dst, src, sr, xdraw.Over, nil)
	p.draws++
	p.dev.draws.Add(1)
}

// DrawMask paints c through mask placed with its origin at at, clipped to clip.
func (p *RenderPass) DrawMask(mask *image.Alpha, at image.Point, clip image.Rectangle, c color.Color) {
	r := mask.Rect.Add(at).Intersect(clip).Intersect(p.img.Rect)
	if r.Empty() {
		return
	}
	xdraw.DrawMask(p.img, r, image.NewUniform(c), image.Point{}, mask, r.Min.Sub(at), xdraw.Over)
	p.draws++
	p.dev.draws.Add(1)
}

// End flushes the renderer. The pass must not be used afterwards.
func (p *RenderPass) End() error {
	return p.dev.renderer.Flush()
}

func (p *RenderPass) submit() error {
	if err := p.dev.renderer.Render(p.target, p.scene); err != nil {
		return fmt.Errorf("gpu: render: %w", err)
	}
	p.draws++
	p.dev.draws.Add(1)
	return nil
}

func ndcToPixel(pos [2]float32, w, h int) (float64, float64) {
	x := (float64(pos[0]) + 1) / 2 * float64(w)
	y := (1 - float64(pos[1])) / 2 * float64(h)
	return x, y
}

func toNRGBA(c [4]float32) color.NRGBA {
	ch := func(v float32) uint8 {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: ch(c[3])}
}
