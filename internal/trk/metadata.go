package trk

import (
	"errors"
	"fmt"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/track"
)

var (
	// ErrMalformedMetadata is returned for a value type code the format does not define.
	ErrMalformedMetadata = errors.New("malformed metadata")
	// ErrUnsupportedLocationFormat is returned for a location version outside 1-4.
	ErrUnsupportedLocationFormat = errors.New("unsupported location format")
	// ErrLocationOverrun is returned when tagged fields overrun the declared record size.
	ErrLocationOverrun = errors.New("location fields overrun record size")
)

// Value type codes carried in place of a string length.
const (
	typeBool  = -1
	typeLong  = -2
	typeFloat = -3
	typeBlob  = -4
)

// ReadMetadata decodes a count-prefixed list of named values. Era 3 blocks
// carry a trailing extension count which is read and dropped.
func ReadMetadata(r *binread.Reader, era int) (track.Metadata, error) {
	var m track.Metadata
	n, err := r.Int32()
	if err != nil {
		return m, fmt.Errorf("metadata count: %w", err)
	}
	for i := int32(0); i < n; i++ {
		nameLen, err := r.Int32()
		if err != nil {
			return m, fmt.Errorf("metadata entry %d: %w", i, err)
		}
		if nameLen < 0 {
			return m, fmt.Errorf("%w: entry %d name length %d", ErrMalformedMetadata, i, nameLen)
		}
		name, err := r.String(int64(nameLen))
		if err != nil {
			return m, fmt.Errorf("metadata entry %d name: %w", i, err)
		}
		v, err := readValue(r)
		if err != nil {
			return m, fmt.Errorf("metadata %q: %w", name, err)
		}
		m.Set(name, v)
	}
	if era == 3 {
		// Extension count, unused.
		if _, err := r.Int32(); err != nil {
			return m, fmt.Errorf("metadata extension count: %w", err)
		}
	}
	return m, nil
}

func readValue(r *binread.Reader) (track.Value, error) {
	code, err := r.Int32()
	if err != nil {
		return track.Value{}, err
	}
	switch {
	case code >= 0:
		s, err := r.String(int64(code))
		return track.StringValue(s), err
	case code == typeBool:
		b, err := r.Bool()
		return track.BoolValue(b), err
	case code == typeLong:
		v, err := r.Int64()
		return track.IntValue(v), err
	case code == typeFloat:
		v, err := r.Float64()
		return track.FloatValue(v), err
	case code == typeBlob:
		b, err := r.RawBlob()
		return track.BlobValue(b), err
	default:
		return track.Value{}, fmt.Errorf("%w: type code %d", ErrMalformedMetadata, code)
	}
}
