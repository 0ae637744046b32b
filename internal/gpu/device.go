// Package gpu is a small GPU-style command layer over the gg software
// renderer. It keeps the buffer, pipeline and pass vocabulary of a real GPU
// API so layers can retain resources between frames and only upload what
// changed.
package gpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gg/render"
)

var ErrOutOfBounds = errors.New("gpu: write out of buffer bounds")

// Device owns the renderer and the texture pool. It is safe for concurrent
// use; render passes are not.
type Device struct {
	renderer render.Renderer
	textures *TexturePool
	log      *slog.Logger

	bufferWrites atomic.Uint64
	draws        atomic.Uint64
}

type Option func(*Device)

// WithRenderer replaces the default software renderer.
func WithRenderer(r render.Renderer) Option {
	return func(d *Device) { d.renderer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.log = l }
}

func NewDevice(opts ...Option) *Device {
	d := &Device{
		renderer: render.NewSoftwareRenderer(),
		textures: NewTexturePool(),
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Stats reports lifetime counters.
type Stats struct {
	BufferWrites uint64
	Draws        uint64
}

func (d *Device) Stats() Stats {
	return Stats{BufferWrites: d.bufferWrites.Load(), Draws: d.draws.Load()}
}

// CreateBuffer allocates a zeroed buffer.
func (d *Device) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("gpu: buffer %q: invalid size %d", desc.Label, desc.Size)
	}
	if desc.Usage == 0 {
		return nil, fmt.Errorf("gpu: buffer %q: no usage flags", desc.Label)
	}
	return &Buffer{label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}, nil
}

// CreateBufferInit allocates a buffer holding a copy of contents.
func (d *Device) CreateBufferInit(label string, usage BufferUsage, contents []byte) (*Buffer, error) {
	b, err := d.CreateBuffer(BufferDescriptor{Label: label, Size: len(contents), Usage: usage})
	if err != nil {
		return nil, err
	}
	copy(b.data, contents)
	return b, nil
}

// WriteBuffer copies data into b at offset. The buffer must carry UsageCopyDst.
func (d *Device) WriteBuffer(b *Buffer, offset int, data []byte) error {
	if b.usage&UsageCopyDst == 0 {
		return fmt.Errorf("gpu: buffer %q is not writable", b.label)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("%w: %q offset %d len %d size %d", ErrOutOfBounds, b.label, offset, len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	b.writes++
	d.bufferWrites.Add(1)
	return nil
}

// CreateRenderPipeline validates and returns a pipeline.
func (d *Device) CreateRenderPipeline(desc PipelineDescriptor) (*RenderPipeline, error) {
	switch desc.Blend {
	case BlendReplace, BlendAlpha:
	default:
		return nil, fmt.Errorf("gpu: pipeline %q: unknown blend state %d", desc.Label, desc.Blend)
	}
	return &RenderPipeline{label: desc.Label, blend: desc.Blend}, nil
}

// CreateTexture returns a pooled render target. Contents are undefined until
// a pass clears it.
func (d *Device) CreateTexture(width, height int) *Texture {
	img := d.textures.Get(image.Rect(0, 0, width, height))
	return &Texture{img: img, pool: d.textures}
}
