package binread

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// Scalar encodings shared by the TRK and LDK formats. All multi-byte values
// are big-endian.
const (
	coordinateScale = 1e-7
	timestampScale  = 1e-3
	heightScale     = 1e-3
	pressureScale   = 1e-3

	// HeightAbsent and PressureAbsent are the raw sentinels for "no value".
	HeightAbsent   int32 = -999999999
	PressureAbsent int32 = 999999999

	// Reads up to this size are allocated up front; larger ones grow as
	// bytes actually arrive so a corrupt length cannot force a huge alloc.
	maxEagerAlloc = 64 * 1024
)

var (
	// ErrTruncatedInput is returned when fewer bytes remain than a field needs.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrUndecodableText is returned when a string matches none of the candidate encodings.
	ErrUndecodableText = errors.New("undecodable text")
)

// HeightConverter turns an ellipsoidal height into an orthometric one at the
// given position. Failures are ignored by the reader.
type HeightConverter interface {
	Orthometric(lonDeg, latDeg, heightM float64) (float64, error)
}

// Options configures optional capabilities of a Reader. The zero value
// decodes text with the legacy codec chain and applies no height conversion.
type Options struct {
	Text    TextDecoder
	Heights HeightConverter
}

// Reader decodes big-endian scalars from a seekable byte source. It tracks no
// state beyond the source's own cursor, so callers may seek freely between
// reads.
type Reader struct {
	rs      io.ReadSeeker
	text    TextDecoder
	heights HeightConverter
	scratch [8]byte
}

func NewReader(rs io.ReadSeeker, opts Options) *Reader {
	text := opts.Text
	if text == nil {
		text = Legacy()
	}
	return &Reader{rs: rs, text: text, heights: opts.Heights}
}

// Offset returns the current absolute position.
func (r *Reader) Offset() (int64, error) {
	return r.rs.Seek(0, io.SeekCurrent)
}

// SeekTo moves to an absolute offset.
func (r *Reader) SeekTo(off int64) error {
	if off < 0 {
		return fmt.Errorf("%w: seek to negative offset %d", ErrTruncatedInput, off)
	}
	_, err := r.rs.Seek(off, io.SeekStart)
	return err
}

// SeekPointer moves to an absolute offset read from the file as an unsigned pointer.
func (r *Reader) SeekPointer(ptr uint64) error {
	if ptr > math.MaxInt64 {
		return fmt.Errorf("%w: pointer 0x%X out of range", ErrTruncatedInput, ptr)
	}
	return r.SeekTo(int64(ptr))
}

// Skip advances n bytes. The skipped region must exist.
func (r *Reader) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := r.Bytes(n)
	return err
}

func (r *Reader) fill(n int) ([]byte, error) {
	b := r.scratch[:n]
	if _, err := io.ReadFull(r.rs, b); err != nil {
		return nil, r.truncated(err, int64(n))
	}
	return b, nil
}

func (r *Reader) truncated(err error, n int64) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		off, _ := r.rs.Seek(0, io.SeekCurrent)
		return fmt.Errorf("%w: need %d bytes near offset %d", ErrTruncatedInput, n, off)
	}
	return err
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.fill(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Int32() (int32, error) {
	b, err := r.fill(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// Int64 reads the format's "long".
func (r *Reader) Int64() (int64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) Float64() (float64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// Pointer reads an unsigned 64-bit archive offset.
func (r *Reader) Pointer() (uint64, error) {
	b, err := r.fill(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// Bool reads one byte. Any non-zero value is true; the format does not
// restrict it to 0/1.
func (r *Reader) Bool() (bool, error) {
	b, err := r.Byte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// Coordinate reads a 1e-7 scaled int32 as decimal degrees.
func (r *Reader) Coordinate() (float64, error) {
	v, err := r.Int32()
	if err != nil {
		return 0, err
	}
	return float64(v) * coordinateScale, nil
}

// Timestamp reads a millisecond int64 as Unix seconds.
func (r *Reader) Timestamp() (float64, error) {
	v, err := r.Int64()
	if err != nil {
		return 0, err
	}
	return float64(v) * timestampScale, nil
}

// Height reads an elevation in metres, nil when the sentinel is present.
//
// When a HeightConverter is configured the value is converted to an
// orthometric height at (lon, lat); a conversion error keeps the raw value.
func (r *Reader) Height(lonDeg, latDeg float64) (*float64, error) {
	v, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if v == HeightAbsent {
		return nil, nil
	}
	h := float64(v) * heightScale
	if r.heights != nil {
		if conv, err := r.heights.Orthometric(lonDeg, latDeg, h); err == nil && !math.IsNaN(conv) && !math.IsInf(conv, 0) {
			h = conv
		}
	}
	return &h, nil
}

// Pressure reads a 1e-3 scaled barometric value, nil when the sentinel is present.
func (r *Reader) Pressure() (*float64, error) {
	v, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if v == PressureAbsent {
		return nil, nil
	}
	p := float64(v) * pressureScale
	return &p, nil
}

// Accuracy reads an unscaled int32.
func (r *Reader) Accuracy() (int32, error) {
	return r.Int32()
}

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int64) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("binread: negative length %d", n)
	}
	if n <= maxEagerAlloc {
		b := make([]byte, n)
		if _, err := io.ReadFull(r.rs, b); err != nil {
			return nil, r.truncated(err, n)
		}
		return b, nil
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r.rs, n); err != nil {
		return nil, r.truncated(err, n)
	}
	return buf.Bytes(), nil
}

// String reads n bytes and decodes them with the configured text chain.
func (r *Reader) String(n int64) (string, error) {
	b, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	s, err := r.text.Decode(b)
	if err != nil {
		return "", fmt.Errorf("string of %d bytes: %w", n, err)
	}
	return s, nil
}

// RawBlob reads an int32 length followed by that many bytes.
func (r *Reader) RawBlob() ([]byte, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, fmt.Errorf("binread: negative blob length %d", n)
	}
	return r.Bytes(int64(n))
}
