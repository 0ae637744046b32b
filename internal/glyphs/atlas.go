package glyphs

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg/cache"
	"github.com/gogpu/gg/text"
)

// ErrAtlasFull is returned when a line cannot be rasterized within the atlas limits.
var ErrAtlasFull = errors.New("glyphs: atlas full")

const (
	DefaultAtlasCapacity = 64   // entries per shard
	DefaultMaxSide       = 4096 // pixels
)

// LineMask is a rasterized line of text. Offset is the position of the mask
// origin relative to the top-left of the line box.
type LineMask struct {
	Mask   *image.Alpha
	Offset image.Point
}

type atlasKey struct {
	attrs Attrs
	size  uint32
	line  string
}

func hashAtlasKey(k atlasKey) uint64 {
	h := cache.StringHasher(k.line)
	h ^= uint64(k.size) * 0x9E3779B97F4A7C15
	h ^= uint64(k.attrs.Family)<<2 | b2u(k.attrs.Bold)<<1 | b2u(k.attrs.Italic)
	return h
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Atlas caches line masks keyed by face and text.
type Atlas struct {
	fonts   *FontSystem
	masks   *cache.ShardedCache[atlasKey, *LineMask]
	maxSide int
}

// NewAtlas creates an atlas. Non-positive arguments select the defaults.
func NewAtlas(fonts *FontSystem, capacity, maxSide int) *Atlas {
	if capacity <= 0 {
		capacity = DefaultAtlasCapacity
	}
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Atlas{
		fonts:   fonts,
		masks:   cache.NewSharded[atlasKey, *LineMask](capacity, hashAtlasKey),
		maxSide: maxSide,
	}
}

// Mask returns the mask for line rendered with attrs at size pixels,
// rasterizing it on first use.
func (a *Atlas) Mask(attrs Attrs, size float32, line string) (*LineMask, error) {
	key := atlasKey{attrs: attrs, size: math.Float32bits(size), line: line}
	if m, ok := a.masks.Get(key); ok {
		return m, nil
	}

	face := a.fonts.Face(attrs, float64(size))
	met := face.Metrics()
	// Room for italic overhang and outline-free antialiasing.
	pad := int(math.Ceil(float64(size)*0.25)) + 1
	w := int(math.Ceil(face.Advance(line))) + 2*pad
	h := int(math.Ceil(met.Ascent+met.Descent)) + 2*pad
	if w > a.maxSide || h > a.maxSide {
		return nil, fmt.Errorf("%w: %q needs %dx%d, max side %d", ErrAtlasFull, line, w, h, a.maxSide)
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	text.Draw(mask, line, face, float64(pad), float64(pad)+met.Ascent, color.Opaque)

	m := &LineMask{Mask: mask, Offset: image.Pt(-pad, -pad)}
	a.masks.Set(key, m)
	return m, nil
}

// Len is the number of cached masks.
func (a *Atlas) Len() int { return a.masks.Len() }

func (a *Atlas) Stats() cache.Stats { return a.masks.Stats() }
