// Package fixture builds synthetic TRK and LDK byte streams for tests.
package fixture

import (
	"encoding/binary"
	"math"
)

// Builder appends big-endian fields to a growing buffer.
type Builder struct {
	buf []byte
}

func (b *Builder) Bytes() []byte { return b.buf }
func (b *Builder) Len() int      { return len(b.buf) }

func (b *Builder) Int32(v int32) *Builder {
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(v))
	return b
}

func (b *Builder) Int64(v int64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, uint64(v))
	return b
}

func (b *Builder) Pointer(v uint64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, v)
	return b
}

func (b *Builder) Float64(v float64) *Builder {
	b.buf = binary.BigEndian.AppendUint64(b.buf, math.Float64bits(v))
	return b
}

func (b *Builder) Byte(v byte) *Builder {
	b.buf = append(b.buf, v)
	return b
}

func (b *Builder) Raw(p []byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// PadTo appends zero bytes until the buffer is n bytes long.
func (b *Builder) PadTo(n int) *Builder {
	for len(b.buf) < n {
		b.buf = append(b.buf, 0)
	}
	return b
}

// PutPointerAt overwrites 8 bytes at off, for back-patching offsets.
func (b *Builder) PutPointerAt(off int, v uint64) *Builder {
	binary.BigEndian.PutUint64(b.buf[off:off+8], v)
	return b
}

// Coordinate encodes decimal degrees as a 1e-7 scaled int32.
func (b *Builder) Coordinate(deg float64) *Builder {
	return b.Int32(int32(math.Round(deg * 1e7)))
}

// Timestamp encodes Unix seconds as milliseconds.
func (b *Builder) Timestamp(sec float64) *Builder {
	return b.Int64(int64(math.Round(sec * 1e3)))
}
