package trk

import (
	"fmt"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/track"
)

// Counts come straight from the file; cap what is reserved up front.
const maxPrealloc = 4096

func capped(n int32) int {
	if n <= 0 {
		return 0
	}
	return min(int(n), maxPrealloc)
}

// ReadSegment decodes a segment header and its points. Versions below 3
// carry a placeholder int instead of metadata; version 4 adds two reserved
// ints after the metadata.
func ReadSegment(r *binread.Reader, version int) (track.Segment, error) {
	var seg track.Segment
	if version < 3 {
		if _, err := r.Int32(); err != nil {
			return seg, err
		}
	} else {
		meta, err := ReadMetadata(r, version)
		if err != nil {
			return seg, fmt.Errorf("segment metadata: %w", err)
		}
		seg.Meta = meta
		if version == 4 {
			if err := r.Skip(8); err != nil {
				return seg, err
			}
		}
	}

	n, err := r.Int32()
	if err != nil {
		return seg, fmt.Errorf("location count: %w", err)
	}
	seg.Points = make([]track.TrackPoint, 0, capped(n))
	for i := int32(0); i < n; i++ {
		p, err := ReadLocation(r, version)
		if err != nil {
			return seg, fmt.Errorf("location %d: %w", i, err)
		}
		seg.Points = append(seg.Points, p)
	}
	return seg, nil
}

// ReadSegments decodes a count-prefixed list of segments.
func ReadSegments(r *binread.Reader, version int) ([]track.Segment, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("segment count: %w", err)
	}
	out := make([]track.Segment, 0, capped(n))
	for i := int32(0); i < n; i++ {
		seg, err := ReadSegment(r, version)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out = append(out, seg)
	}
	return out, nil
}

// ReadWaypoints decodes a count-prefixed list of metadata + location pairs,
// both at the file's era.
func ReadWaypoints(r *binread.Reader, era int) ([]track.Waypoint, error) {
	n, err := r.Int32()
	if err != nil {
		return nil, fmt.Errorf("waypoint count: %w", err)
	}
	out := make([]track.Waypoint, 0, capped(n))
	for i := int32(0); i < n; i++ {
		meta, err := ReadMetadata(r, era)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		loc, err := ReadLocation(r, era)
		if err != nil {
			return nil, fmt.Errorf("waypoint %d: %w", i, err)
		}
		out = append(out, track.Waypoint{Meta: meta, Location: loc})
	}
	return out, nil
}
