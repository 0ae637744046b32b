package glyphs

import (
	"strings"
	"sync/atomic"

	"github.com/gogpu/gg/text"
)

// Metrics are the font size and line advance of a buffer, in pixels.
type Metrics struct {
	FontSize   float32
	LineHeight float32
}

// Line is one wrapped line. X is its offset from the buffer's left edge.
type Line struct {
	Text  string
	X     float32
	Width float32
}

var generations atomic.Uint64

// Buffer holds text shaped and wrapped for one set of metrics and width.
// Every buffer and every SetText gets a new generation, so callers can tell
// whether retained glyph data is still current.
type Buffer struct {
	metrics Metrics
	width   float32

	text  string
	attrs Attrs
	lines []Line

	generation uint64
}

func NewBuffer(m Metrics) *Buffer {
	return &Buffer{
		metrics:    m,
		generation: generations.Add(1),
	}
}

// SetSize sets the wrap width. It takes effect on the next SetText.
func (b *Buffer) SetSize(width float32) { b.width = width }
func (b *Buffer) Metrics() Metrics      { return b.metrics }
func (b *Buffer) Width() float32        { return b.width }
func (b *Buffer) Text() string          { return b.text }
func (b *Buffer) Attrs() Attrs          { return b.attrs }
func (b *Buffer) Lines() []Line         { return b.lines }
func (b *Buffer) LineCount() int        { return len(b.lines) }
func (b *Buffer) Generation() uint64    { return b.generation }
func (b *Buffer) Height() float32       { return float32(len(b.lines)) * b.metrics.LineHeight }

// SetText shapes s with the face for attrs, wraps it to the buffer width and
// centers every line.
func (b *Buffer) SetText(fs *FontSystem, s string, attrs Attrs) {
	face := fs.Face(attrs, float64(b.metrics.FontSize))

	wrapped := text.WrapText(s, face, float64(b.width), text.WrapWordChar)
	lines := make([]Line, 0, len(wrapped))
	for _, w := range wrapped {
		t := strings.TrimRight(w.Text, " \t\r\n")
		width := float32(face.Advance(t))
		var x float32
		if b.width > width {
			x = (b.width - width) / 2
		}
		lines = append(lines, Line{Text: t, X: x, Width: width})
	}

	b.text = s
	b.attrs = attrs
	b.lines = lines
	b.generation = generations.Add(1)
}
