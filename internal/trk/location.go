package trk

import (
	"fmt"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/track"
)

// Wire widths of era-4 tagged fields, tag byte included.
const (
	widthElevation        = 5
	widthTimestamp        = 9
	widthAccuracy         = 5
	widthPressure         = 5
	widthNetwork          = 3
	widthBattery          = 2
	widthSatellites       = 9
	widthVerticalAccuracy = 5
)

// ReadLocation decodes one track point in the layout of the given segment
// version: fixed fields for 1-3, tagged fields for 4.
func ReadLocation(r *binread.Reader, version int) (track.TrackPoint, error) {
	var p track.TrackPoint
	if version < 1 || version > 4 {
		return p, fmt.Errorf("%w: version %d", ErrUnsupportedLocationFormat, version)
	}
	size, err := r.Int32()
	if err != nil {
		return p, err
	}
	if p.Lon, err = r.Coordinate(); err != nil {
		return p, err
	}
	if p.Lat, err = r.Coordinate(); err != nil {
		return p, err
	}
	if version <= 3 {
		err = readFixedFields(r, size, &p)
	} else {
		err = readTaggedFields(r, size, &p)
	}
	return p, err
}

func readFixedFields(r *binread.Reader, size int32, p *track.TrackPoint) error {
	var err error
	if p.Elevation, err = r.Height(p.Lon, p.Lat); err != nil {
		return err
	}
	ts, err := r.Timestamp()
	if err != nil {
		return err
	}
	p.Timestamp = &ts
	if size > 20 {
		acc, err := r.Accuracy()
		if err != nil {
			return err
		}
		p.Accuracy = &acc
	}
	if size > 24 {
		if p.Pressure, err = r.Pressure(); err != nil {
			return err
		}
	}
	return nil
}

// readTaggedFields applies single-byte tagged fields until the declared
// record size is used up. An unknown tag swallows the rest of the record.
func readTaggedFields(r *binread.Reader, size int32, p *track.TrackPoint) error {
	remaining := int64(size) - 8
	for remaining > 0 {
		tag, err := r.Byte()
		if err != nil {
			return err
		}
		switch tag {
		case 'e':
			if p.Elevation, err = r.Height(p.Lon, p.Lat); err != nil {
				return err
			}
			remaining -= widthElevation
		case 't':
			ts, err := r.Timestamp()
			if err != nil {
				return err
			}
			p.Timestamp = &ts
			remaining -= widthTimestamp
		case 'a':
			acc, err := r.Accuracy()
			if err != nil {
				return err
			}
			p.Accuracy = &acc
			remaining -= widthAccuracy
		case 'p':
			if p.Pressure, err = r.Pressure(); err != nil {
				return err
			}
			remaining -= widthPressure
		case 'n':
			b, err := r.Bytes(2)
			if err != nil {
				return err
			}
			code, signal := b[0], b[1]
			n := track.DecodeNetwork(&code, &signal)
			p.Network = &n
			remaining -= widthNetwork
		case 'b':
			v, err := r.Byte()
			if err != nil {
				return err
			}
			p.Battery = &v
			remaining -= widthBattery
		case 's':
			b, err := r.Bytes(8)
			if err != nil {
				return err
			}
			p.SatGPS, p.SatGLONASS, p.SatBeidou, p.SatGalileo = track.ParseSatellites(b)
			remaining -= widthSatellites
		case 'v':
			v, err := r.Int32()
			if err != nil {
				return err
			}
			va := float64(v) * 1e-2
			p.VerticalAccuracy = &va
			remaining -= widthVerticalAccuracy
		default:
			if err := r.Skip(remaining - 1); err != nil {
				return err
			}
			remaining = 0
		}
	}
	if remaining < 0 {
		return fmt.Errorf("%w: declared %d bytes, %d over", ErrLocationOverrun, size, -remaining)
	}
	return nil
}
