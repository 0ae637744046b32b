package gpu

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func quad(left, top, right, bottom float32, c [4]float32) []ColorVertex {
	return []ColorVertex{
		{Position: [2]float32{left, top}, Color: c},
		{Position: [2]float32{right, top}, Color: c},
		{Position: [2]float32{right, bottom}, Color: c},
		{Position: [2]float32{left, bottom}, Color: c},
	}
}

func newQuadPass(t *testing.T, d *Device, blend BlendState, c [4]float32, clear color.Color) (*RenderPass, *Texture) {
	t.Helper()
	vb, err := d.CreateBufferInit("quad vertices", UsageVertex|UsageCopyDst, EncodeColorVertices(quad(-0.5, 0.5, 0.5, -0.5, c)))
	if err != nil {
		t.Fatalf("CreateBufferInit failed: %v", err)
	}
	ib, err := d.CreateBufferInit("quad indices", UsageIndex, EncodeIndices([]uint16{0, 1, 2, 2, 3, 0}))
	if err != nil {
		t.Fatalf("CreateBufferInit failed: %v", err)
	}
	pl, err := d.CreateRenderPipeline(PipelineDescriptor{Label: "quad", Blend: blend})
	if err != nil {
		t.Fatalf("CreateRenderPipeline failed: %v", err)
	}

	tex := d.CreateTexture(100, 100)
	pass := d.BeginRenderPass(tex, clear)
	pass.SetPipeline(pl)
	pass.SetVertexBuffer(vb)
	pass.SetIndexBuffer(ib)
	return pass, tex
}

func TestDrawIndexedQuad(t *testing.T) {
	d := NewDevice()
	pass, tex := newQuadPass(t, d, BlendAlpha, [4]float32{1, 0, 0, 1}, color.Black)
	defer tex.Release()

	if err := pass.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed failed: %v", err)
	}
	if err := pass.End(); err != nil {
		t.Fatalf("End failed: %v", err)
	}

	img := tex.Image()
	if got := img.RGBAAt(60, 40); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("Expected red inside quad, got %v", got)
	}
	if got := img.RGBAAt(10, 10); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("Expected clear color outside quad, got %v", got)
	}
	if pass.Draws() != 1 || d.Stats().Draws != 1 {
		t.Errorf("Expected 1 draw, got pass %d device %d", pass.Draws(), d.Stats().Draws)
	}
}

func TestDrawIndexedAlphaBlend(t *testing.T) {
	d := NewDevice()
	pass, tex := newQuadPass(t, d, BlendAlpha, [4]float32{0, 0, 0, 0.5}, color.White)
	if err := pass.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed failed: %v", err)
	}

	got := tex.Image().RGBAAt(60, 40)
	if got.R < 120 || got.R > 135 {
		t.Errorf("Expected half-blended gray, got %v", got)
	}
}

func TestDrawIndexedReplaceIgnoresAlpha(t *testing.T) {
	d := NewDevice()
	pass, tex := newQuadPass(t, d, BlendReplace, [4]float32{0, 0, 0, 0.5}, color.White)
	if err := pass.DrawIndexed(6); err != nil {
		t.Fatalf("DrawIndexed failed: %v", err)
	}
	if got := tex.Image().RGBAAt(60, 40); got.R != 0 {
		t.Errorf("Expected opaque black, got %v", got)
	}
}

func TestDrawIndexedValidation(t *testing.T) {
	d := NewDevice()
	pass := d.BeginRenderPass(d.CreateTexture(10, 10), nil)
	if err := pass.DrawIndexed(6); err == nil {
		t.Error("Expected error without pipeline")
	}

	pass, _ = newQuadPass(t, d, BlendAlpha, [4]float32{1, 1, 1, 1}, nil)
	if err := pass.DrawIndexed(4); err == nil {
		t.Error("Expected error for non-triangle index count")
	}
	if err := pass.DrawIndexed(9); err == nil {
		t.Error("Expected error for index count beyond buffer")
	}
}

func TestWriteBuffer(t *testing.T) {
	d := NewDevice()
	b, err := d.CreateBuffer(BufferDescriptor{Label: "uniform", Size: 8, Usage: UsageUniform | UsageCopyDst})
	if err != nil {
		t.Fatalf("CreateBuffer failed: %v", err)
	}

	if err := d.WriteBuffer(b, 4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteBuffer failed: %v", err)
	}
	if got := b.Bytes(); got[4] != 1 || got[7] != 4 {
		t.Errorf("Unexpected contents %v", got)
	}
	if err := d.WriteBuffer(b, 6, []byte{1, 2, 3}); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("Expected ErrOutOfBounds, got %v", err)
	}
	if b.Writes() != 1 || d.Stats().BufferWrites != 1 {
		t.Errorf("Expected 1 write, got %d", b.Writes())
	}

	ro, _ := d.CreateBufferInit("ro", UsageIndex, []byte{0, 0})
	if err := d.WriteBuffer(ro, 0, []byte{1}); err == nil {
		t.Error("Expected error writing buffer without UsageCopyDst")
	}
	if _, err := d.CreateBuffer(BufferDescriptor{Label: "empty", Usage: UsageVertex}); err == nil {
		t.Error("Expected error for zero-size buffer")
	}
}

func TestCreateRenderPipelineRejectsUnknownBlend(t *testing.T) {
	if _, err := NewDevice().CreateRenderPipeline(PipelineDescriptor{Label: "bad", Blend: 7}); err == nil {
		t.Error("Expected error for unknown blend state")
	}
}

func TestDrawMaskClipped(t *testing.T) {
	d := NewDevice()
	tex := d.CreateTexture(20, 20)
	pass := d.BeginRenderPass(tex, color.Black)

	mask := image.NewAlpha(image.Rect(0, 0, 10, 10))
	for i := range mask.Pix {
		mask.Pix[i] = 0xFF
	}
	pass.DrawMask(mask, image.Pt(5, 5), image.Rect(0, 0, 10, 20), color.White)

	img := tex.Image()
	if got := img.RGBAAt(7, 7); got.R != 255 {
		t.Errorf("Expected white inside clip, got %v", got)
	}
	if got := img.RGBAAt(12, 7); got.R != 0 {
		t.Errorf("Expected clipped pixel to stay black, got %v", got)
	}
}

func TestTexturePoolReuse(t *testing.T) {
	p := NewTexturePool()
	rect := image.Rect(0, 0, 64, 32)
	img := p.Get(rect)
	if img.Rect != rect {
		t.Fatalf("Expected %v, got %v", rect, img.Rect)
	}
	p.Put(img)
	p.Put(image.NewRGBA(image.Rect(0, 0, 3, 3))) // unknown size is dropped
	if again := p.Get(rect); again.Rect != rect {
		t.Errorf("Expected %v, got %v", rect, again.Rect)
	}
}

func TestVertexRoundTrip(t *testing.T) {
	in := quad(-1, 1, 1, -1, [4]float32{0.1, 0.2, 0.3, 0.4})
	out := DecodeColorVertices(EncodeColorVertices(in))
	if len(out) != 4 || out[2] != in[2] {
		t.Errorf("Unexpected vertices %v", out)
	}
}
