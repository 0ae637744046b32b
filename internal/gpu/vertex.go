package gpu

import (
	"encoding/binary"
	"math"
)

// ColorVertexSize is the encoded size of a ColorVertex.
const ColorVertexSize = 24

// ColorVertex is a position in normalized device coordinates with a flat color.
type ColorVertex struct {
	Position [2]float32
	Color    [4]float32
}

func EncodeColorVertices(vs []ColorVertex) []byte {
	b := make([]byte, 0, len(vs)*ColorVertexSize)
	for _, v := range vs {
		for _, f := range v.Position {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
		for _, f := range v.Color {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
		}
	}
	return b
}

func DecodeColorVertices(b []byte) []ColorVertex {
	vs := make([]ColorVertex, len(b)/ColorVertexSize)
	for i := range vs {
		off := i * ColorVertexSize
		f := func(n int) float32 {
			return math.Float32frombits(binary.LittleEndian.Uint32(b[off+n*4:]))
		}
		vs[i] = ColorVertex{
			Position: [2]float32{f(0), f(1)},
			Color:    [4]float32{f(2), f(3), f(4), f(5)},
		}
	}
	return vs
}

func EncodeIndices(idx []uint16) []byte {
	b := make([]byte, 0, len(idx)*2)
	for _, i := range idx {
		b = binary.LittleEndian.AppendUint16(b, i)
	}
	return b
}

func DecodeIndices(b []byte) []uint16 {
	idx := make([]uint16, len(b)/2)
	for i := range idx {
		idx[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return idx
}
