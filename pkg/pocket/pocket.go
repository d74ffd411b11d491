// Package pocket tracks which bytes of a sequential source have been consumed
// since the last checkpoint.
package pocket

import (
	"bytes"
	"io"
)

// Buffer wraps a reader and keeps a side copy of every byte it delivers
// until Checkpoint is called. Reads behave exactly like the wrapped reader.
//
// A Buffer is not safe for concurrent use; it has a single reader.
type Buffer struct {
	src    io.Reader
	pocket bytes.Buffer
	one    [1]byte
}

func New(src io.Reader) *Buffer {
	return &Buffer{src: src}
}

func (b *Buffer) Read(p []byte) (int, error) {
	n, err := b.src.Read(p)
	if n > 0 {
		b.pocket.Write(p[:n])
	}
	return n, err
}

// ReadByte reads a single byte from the source. When the source is an
// io.ByteReader it is used directly, otherwise a one byte Read is issued.
func (b *Buffer) ReadByte() (byte, error) {
	if br, ok := b.src.(io.ByteReader); ok {
		c, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		b.pocket.WriteByte(c)
		return c, nil
	}

	for {
		n, err := b.src.Read(b.one[:])
		if n == 1 {
			b.pocket.WriteByte(b.one[0])
			return b.one[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// Checkpoint returns everything read since the previous checkpoint and starts
// a new span. The returned slice is owned by the caller.
func (b *Buffer) Checkpoint() []byte {
	span := make([]byte, b.pocket.Len())
	copy(span, b.pocket.Bytes())
	b.pocket.Reset()
	return span
}

// Len reports how many bytes are pending in the current span.
func (b *Buffer) Len() int {
	return b.pocket.Len()
}
