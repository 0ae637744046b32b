package captions

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// UniformSize is the byte size of an encoded Uniform, a multiple of 16.
const UniformSize = 96

// Uniform is the GPU layout of a caption style. Field order and padding
// match the shader-side struct.
type Uniform struct {
	Enabled      uint32
	FontSize     float32
	Color        [4]float32
	Background   [4]float32
	Position     uint32
	Outline      uint32
	OutlineColor [4]float32
	Font         uint32
	Bold         uint32
	Italic       uint32
	_            [5]float32
}

func (s Style) Uniform() Uniform {
	return Uniform{
		Enabled:      boolToU32(s.Enabled),
		FontSize:     s.FontSize,
		Color:        s.Color,
		Background:   s.Background,
		Position:     uint32(s.Position),
		Outline:      boolToU32(s.Outline),
		OutlineColor: s.OutlineColor,
		Font:         uint32(s.Font),
		Bold:         boolToU32(s.Bold),
		Italic:       boolToU32(s.Italic),
	}
}

// Bytes encodes the record in little-endian order.
func (u Uniform) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(UniformSize)
	// Writes into a bytes.Buffer cannot fail for a fixed-size struct.
	_ = binary.Write(&buf, binary.LittleEndian, u)
	return buf.Bytes()
}

// DecodeUniform is the inverse of Bytes.
func DecodeUniform(b []byte) (Uniform, error) {
	var u Uniform
	if len(b) != UniformSize {
		return u, fmt.Errorf("captions: uniform is %d bytes, want %d", len(b), UniformSize)
	}
	err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &u)
	return u, err
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
