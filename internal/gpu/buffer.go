package gpu

import "sync"

type BufferUsage uint8

const (
	UsageVertex BufferUsage = 1 << iota
	UsageIndex
	UsageUniform
	UsageCopyDst
)

type BufferDescriptor struct {
	Label string
	Size  int
	Usage BufferUsage
}

// Buffer is a fixed-size block of device memory.
type Buffer struct {
	label string
	usage BufferUsage

	mu     sync.RWMutex
	data   []byte
	writes uint64
}

func (b *Buffer) Label() string      { return b.label }
func (b *Buffer) Usage() BufferUsage { return b.usage }
func (b *Buffer) Size() int          { return len(b.data) }

// Writes counts successful WriteBuffer calls targeting b.
func (b *Buffer) Writes() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writes
}

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}
