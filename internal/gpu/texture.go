package gpu

import (
	"image"
	"sync"
)

// TexturePool reuses *image.RGBA render targets per size to keep the garbage
// collector out of the frame loop.
type TexturePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

func NewTexturePool() *TexturePool {
	return &TexturePool{pools: make(map[string]*sync.Pool)}
}

// Get returns an image of the given size, reused when one is available.
func (p *TexturePool) Get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put hands img back for reuse. Images of sizes never requested are dropped.
func (p *TexturePool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}

// Texture is a render target backed by a pooled image.
type Texture struct {
	img  *image.RGBA
	pool *TexturePool
	once sync.Once
}

// WrapImage makes img usable as a render target without pooling.
func WrapImage(img *image.RGBA) *Texture {
	return &Texture{img: img}
}

func (t *Texture) Image() *image.RGBA { return t.img }
func (t *Texture) Width() int         { return t.img.Rect.Dx() }
func (t *Texture) Height() int        { return t.img.Rect.Dy() }

// Release returns the texture to its pool. The image must not be used afterwards.
func (t *Texture) Release() {
	t.once.Do(func() {
		if t.pool != nil {
			t.pool.Put(t.img)
		}
	})
}
