// Package trk decodes TRK track files.
//
// A file starts with a 32-bit version and a 32-bit header size. Versions 1-3
// share a fixed header followed by metadata, waypoints and segments; any
// higher version is treated as era 4, which replaces the fixed header with a
// summary metadata block and switches locations to tagged fields.
package trk

import (
	"encoding/binary"
	"fmt"
	"io"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/track"
)

// Headers at least this long carry the statistics block at offset 8.
const statsHeaderSize = 60

// Era collapses a raw file version: anything above 3 is era 4.
func Era(version int32) int {
	if version > 3 {
		return 4
	}
	return int(version)
}

// ReadHeader reads only the first 8 bytes and returns (era, header size).
func ReadHeader(r io.Reader) (int, int32, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: header: %v", binread.ErrTruncatedInput, err)
	}
	version := int32(binary.BigEndian.Uint32(b[0:4]))
	size := int32(binary.BigEndian.Uint32(b[4:8]))
	return Era(version), size, nil
}

// Decode reads a complete TRK stream. Any error aborts the decode; no
// partial track is returned.
func Decode(rs io.ReadSeeker, opts binread.Options) (*track.Track, error) {
	r := binread.NewReader(rs, opts)
	if err := r.SeekTo(0); err != nil {
		return nil, err
	}
	version, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("trk version: %w", err)
	}
	headerSize, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("trk header size: %w", err)
	}

	t := &track.Track{Version: Era(version), HeaderSize: headerSize}
	if t.Version <= 3 {
		err = decodeLegacy(r, t)
	} else {
		err = decodeModern(r, t)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decodeLegacy(r *binread.Reader, t *track.Track) error {
	if t.HeaderSize >= statsHeaderSize {
		stats, err := readStats(r)
		if err != nil {
			return fmt.Errorf("trk header stats: %w", err)
		}
		t.Stats = stats
	}
	if err := r.SeekTo(int64(t.HeaderSize) + 8); err != nil {
		return err
	}
	return decodeBody(r, t)
}

func decodeModern(r *binread.Reader, t *track.Track) error {
	if err := r.SeekTo(8); err != nil {
		return err
	}
	summary, err := ReadMetadata(r, t.Version)
	if err != nil {
		return fmt.Errorf("trk summary: %w", err)
	}
	t.Summary = &summary
	// Two reserved ints precede the main metadata, two more follow it.
	if err := r.Skip(8); err != nil {
		return err
	}
	if t.Meta, err = ReadMetadata(r, t.Version); err != nil {
		return fmt.Errorf("trk metadata: %w", err)
	}
	if err := r.Skip(8); err != nil {
		return err
	}
	if t.Waypoints, err = ReadWaypoints(r, t.Version); err != nil {
		return fmt.Errorf("trk waypoints: %w", err)
	}
	if t.Segments, err = ReadSegments(r, t.Version); err != nil {
		return fmt.Errorf("trk segments: %w", err)
	}
	return nil
}

func decodeBody(r *binread.Reader, t *track.Track) error {
	var err error
	if t.Meta, err = ReadMetadata(r, t.Version); err != nil {
		return fmt.Errorf("trk metadata: %w", err)
	}
	if t.Waypoints, err = ReadWaypoints(r, t.Version); err != nil {
		return fmt.Errorf("trk waypoints: %w", err)
	}
	if t.Segments, err = ReadSegments(r, t.Version); err != nil {
		return fmt.Errorf("trk segments: %w", err)
	}
	return nil
}

// readStats reads the fixed statistics block that directly follows the
// version and header size.
func readStats(r *binread.Reader) (*track.Stats, error) {
	var s track.Stats
	var err error
	for _, dst := range []*int32{&s.Locations, &s.Segments, &s.Waypoints} {
		if *dst, err = r.Int32(); err != nil {
			return nil, err
		}
	}
	if s.FirstLon, err = r.Coordinate(); err != nil {
		return nil, err
	}
	if s.FirstLat, err = r.Coordinate(); err != nil {
		return nil, err
	}
	if s.FirstTime, err = r.Timestamp(); err != nil {
		return nil, err
	}
	for _, dst := range []*float64{&s.Length, &s.LengthElevation, &s.ElevationGain} {
		if *dst, err = r.Float64(); err != nil {
			return nil, err
		}
	}
	if s.Duration, err = r.Int64(); err != nil {
		return nil, err
	}
	return &s, nil
}
