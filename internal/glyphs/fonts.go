// Package glyphs shapes, rasterizes and draws text for the caption layer.
// A FontSystem provides faces, a Buffer holds shaped and wrapped text, the
// Atlas caches rasterized line masks and the Renderer batches them into a pass.
package glyphs

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

type Family uint8

const (
	SansSerif Family = iota
	Serif
	Monospace
)

func (f Family) String() string {
	switch f {
	case Serif:
		return "serif"
	case Monospace:
		return "monospace"
	default:
		return "sans-serif"
	}
}

// Attrs selects a face within the font system.
type Attrs struct {
	Family Family
	Bold   bool
	Italic bool
}

// FontOptions overrides the bundled fonts with font files. One file serves
// every weight and style of its family.
type FontOptions struct {
	SansPath  string
	SerifPath string
	MonoPath  string
}

type faceKey struct {
	attrs Attrs
	size  uint32
}

// FontSystem owns the font sources and hands out sized faces.
type FontSystem struct {
	mu      sync.Mutex
	sources map[Attrs]*text.FontSource
	faces   map[faceKey]text.Face
	owned   []*text.FontSource
}

// NewFontSystem loads the Go font family for sans-serif and monospace text.
// There is no bundled serif face: without SerifPath, serif falls back to
// sans-serif.
func NewFontSystem(opts FontOptions, log *slog.Logger) (*FontSystem, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	fs := &FontSystem{
		sources: make(map[Attrs]*text.FontSource),
		faces:   make(map[faceKey]text.Face),
	}

	bundled := map[Family][4][]byte{
		SansSerif: {goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF},
		Monospace: {gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF},
	}
	for family, set := range bundled {
		for i, data := range set {
			src, err := text.NewFontSource(data)
			if err != nil {
				fs.Close()
				return nil, fmt.Errorf("glyphs: load bundled %s font: %w", family, err)
			}
			fs.owned = append(fs.owned, src)
			fs.sources[Attrs{Family: family, Bold: i&1 == 1, Italic: i&2 == 2}] = src
		}
	}

	overrides := map[Family]string{SansSerif: opts.SansPath, Serif: opts.SerifPath, Monospace: opts.MonoPath}
	for family, path := range overrides {
		if path == "" {
			continue
		}
		src, err := text.NewFontSourceFromFile(path)
		if err != nil {
			fs.Close()
			return nil, fmt.Errorf("glyphs: load %s font %s: %w", family, path, err)
		}
		fs.owned = append(fs.owned, src)
		for _, bold := range []bool{false, true} {
			for _, italic := range []bool{false, true} {
				fs.sources[Attrs{Family: family, Bold: bold, Italic: italic}] = src
			}
		}
	}

	if opts.SerifPath == "" {
		log.Debug("no serif font configured, using sans-serif")
		for attrs, src := range fs.sources {
			if attrs.Family == SansSerif {
				fs.sources[Attrs{Family: Serif, Bold: attrs.Bold, Italic: attrs.Italic}] = src
			}
		}
	}

	return fs, nil
}

// Face returns a face for attrs at size pixels. Faces are cached.
func (fs *FontSystem) Face(attrs Attrs, size float64) text.Face {
	key := faceKey{attrs: attrs, size: math.Float32bits(float32(size))}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.faces[key]; ok {
		return f
	}
	src, ok := fs.sources[attrs]
	if !ok {
		src = fs.sources[Attrs{Family: SansSerif}]
	}
	f := src.Face(size)
	fs.faces[key] = f
	return f
}

// Close releases all font sources.
func (fs *FontSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var first error
	for _, src := range fs.owned {
		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}
	fs.owned = nil
	clear(fs.faces)
	return first
}
