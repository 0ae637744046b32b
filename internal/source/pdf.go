package source

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

const (
	DefaultPageDuration = 5.0
	DefaultDPI          = 150
)

// PDFSlides shows the pages of a PDF one after another, each for a fixed
// duration, like a screen recording of a slide deck.
type PDFSlides struct {
	doc          *fitz.Document
	path         string
	pages        int
	pageDuration float64
	dpi          int

	mu       sync.Mutex
	lastPage int
	last     image.Image
}

func NewPDFSlides(path string, pageDuration float64, dpi int) (*PDFSlides, error) {
	if pageDuration <= 0 {
		pageDuration = DefaultPageDuration
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &PDFSlides{
		doc:          doc,
		path:         path,
		pages:        doc.NumPage(),
		pageDuration: pageDuration,
		dpi:          dpi,
		lastPage:     -1,
	}, nil
}

func (p *PDFSlides) PageCount() int { return p.pages }

func (p *PDFSlides) Duration() float64 {
	return float64(p.pages) * p.pageDuration
}

// PageSize returns the page bounds at the configured DPI.
func (p *PDFSlides) PageSize(index int) (image.Point, error) {
	rect, err := p.doc.Bound(index)
	if err != nil {
		return image.Point{}, err
	}
	scale := float64(p.dpi) / 72
	return image.Pt(int(float64(rect.Dx())*scale), int(float64(rect.Dy())*scale)), nil
}

func (p *PDFSlides) FrameAt(ctx context.Context, t float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t < 0 {
		return nil, ErrNoFrame
	}
	page := int(t / p.pageDuration)
	if page >= p.pages {
		return nil, ErrNoFrame
	}

	p.mu.Lock()
	if page == p.lastPage {
		img := p.last
		p.mu.Unlock()
		return img, nil
	}
	p.mu.Unlock()

	// Каждый воркер открывает свой документ: fitz.Document не потокобезопасен.
	workerDoc, err := fitz.New(p.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	img, err := workerDoc.ImageDPI(page, float64(p.dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}

	p.mu.Lock()
	p.lastPage, p.last = page, img
	p.mu.Unlock()
	return img, nil
}

func (p *PDFSlides) Close() error {
	return p.doc.Close()
}
