// Package captions resolves caption settings into render-ready styles and
// exports caption tracks to subtitle formats.
package captions

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/ivlev/frameforge/internal/project"
)

// ReferenceHeight is the output height at which caption sizes are authored.
const ReferenceHeight = 1080

type Position uint32

const (
	PositionTop Position = iota
	PositionMiddle
	PositionBottom
)

// ParsePosition maps a settings string to a Position. Unknown values fall back
// to the bottom of the frame.
func ParsePosition(s string) Position {
	switch s {
	case "top":
		return PositionTop
	case "middle":
		return PositionMiddle
	default:
		return PositionBottom
	}
}

// Anchor returns the top of the caption box in pixels for a frame of the given height.
func (p Position) Anchor(height float32) float32 {
	switch p {
	case PositionTop:
		return height * 0.1
	case PositionMiddle:
		return height * 0.5
	default:
		return height * 0.85
	}
}

type FontFamily uint32

const (
	FontSansSerif FontFamily = iota
	FontSerif
	FontMonospace
)

func ParseFont(s string) FontFamily {
	switch s {
	case "System Serif":
		return FontSerif
	case "System Monospace":
		return FontMonospace
	default:
		return FontSansSerif
	}
}

// OutputSize is the frame size captions are laid out for.
type OutputSize struct {
	Width, Height int
}

// RGBA is a color with normalized channels.
type RGBA [4]float32

// NRGBA converts to 8-bit channels, clamping to [0, 1].
func (c RGBA) NRGBA() color.NRGBA {
	ch := func(v float32) uint8 {
		return uint8(math.Round(float64(min(max(v, 0), 1)) * 255))
	}
	return color.NRGBA{R: ch(c[0]), G: ch(c[1]), B: ch(c[2]), A: ch(c[3])}
}

// Style is a fully resolved caption style for one output size.
type Style struct {
	Enabled      bool
	FontSize     float32
	Color        RGBA
	Background   RGBA
	Position     Position
	Outline      bool
	OutlineColor RGBA
	Font         FontFamily
	Bold         bool
	Italic       bool
}

// Fingerprint is the part of a style that changes glyph shapes.
type Fingerprint struct {
	Bold   bool
	Italic bool
	Font   FontFamily
}

func (s Style) Fingerprint() Fingerprint {
	return Fingerprint{Bold: s.Bold, Italic: s.Italic, Font: s.Font}
}

// Resolve converts user settings into a Style for the given output size.
// It never fails: malformed colors resolve to zero channels.
func Resolve(settings project.CaptionSettings, size OutputSize) Style {
	return Style{
		Enabled:  settings.Enabled,
		FontSize: float32(settings.Size) * float32(size.Height) / ReferenceHeight,
		Color:    ParseColor(settings.Color, 1),
		Background: ParseColor(settings.BackgroundColor,
			float32(settings.BackgroundOpacity)/100),
		Position:     ParsePosition(settings.Position),
		Outline:      settings.Outline,
		OutlineColor: ParseColor(settings.OutlineColor, 1),
		Font:         ParseFont(settings.Font),
		Bold:         settings.Bold,
		Italic:       settings.Italic,
	}
}

// ParseColor parses "#RRGGBB" with the given alpha.
func ParseColor(hex string, alpha float32) RGBA {
	return RGBA{
		ParseColorComponent(hex, 0),
		ParseColorComponent(hex, 1),
		ParseColorComponent(hex, 2),
		alpha,
	}
}

// ParseColorComponent returns channel index (0 red, 1 green, 2 blue) of a hex
// color as a value in [0, 1]. A leading '#' is optional. Anything malformed or
// missing yields 0.
func ParseColorComponent(hex string, index int) float32 {
	hex = strings.TrimPrefix(hex, "#")
	start := index * 2
	if index < 0 || start+2 > len(hex) {
		return 0
	}
	v, err := strconv.ParseUint(hex[start:start+2], 16, 8)
	if err != nil {
		return 0
	}
	return float32(v) / 255
}
