package fixture

import "math"

// Entry is one metadata pair. Value must be bool, int64, float64, []byte or string.
type Entry struct {
	Name  string
	Value any
}

// Metadata appends a metadata block. era 3 adds the trailing extension count.
func (b *Builder) Metadata(era int, entries ...Entry) *Builder {
	b.Int32(int32(len(entries)))
	for _, e := range entries {
		b.Int32(int32(len(e.Name))).Raw([]byte(e.Name))
		switch v := e.Value.(type) {
		case bool:
			b.Int32(-1)
			if v {
				b.Byte(1)
			} else {
				b.Byte(0)
			}
		case int64:
			b.Int32(-2).Int64(v)
		case float64:
			b.Int32(-3).Float64(v)
		case []byte:
			b.Int32(-4).Int32(int32(len(v))).Raw(v)
		case string:
			b.Int32(int32(len(v))).Raw([]byte(v))
		default:
			panic("fixture: unsupported metadata value")
		}
	}
	if era == 3 {
		b.Int32(0)
	}
	return b
}

// Point describes a location to encode. Nil fields are left out; for the
// legacy layout Elevation and Time are written as sentinels/zero when nil.
type Point struct {
	Lon, Lat  float64
	Elevation *float64
	Time      *float64
	Accuracy  *int32
	Pressure  *float64
}

// LegacyLocation appends an era 1-3 location with the given declared size.
// size 20 writes elevation and time, >20 adds accuracy, >24 adds pressure.
func (b *Builder) LegacyLocation(size int32, p Point) *Builder {
	b.Int32(size).Coordinate(p.Lon).Coordinate(p.Lat)
	b.heightField(p.Elevation)
	if p.Time != nil {
		b.Timestamp(*p.Time)
	} else {
		b.Int64(0)
	}
	if size > 20 {
		var acc int32
		if p.Accuracy != nil {
			acc = *p.Accuracy
		}
		b.Int32(acc)
	}
	if size > 24 {
		b.pressureField(p.Pressure)
	}
	return b
}

func (b *Builder) heightField(h *float64) {
	if h == nil {
		b.Int32(-999999999)
		return
	}
	b.Int32(int32(math.Round(*h * 1e3)))
}

func (b *Builder) pressureField(p *float64) {
	if p == nil {
		b.Int32(999999999)
		return
	}
	b.Int32(int32(math.Round(*p * 1e3)))
}

// Tag is one tagged field of an era-4 location; Data excludes the tag byte.
type Tag struct {
	Key  byte
	Data []byte
}

// TaggedLocation appends an era-4 location whose declared size is computed
// from the tags so the remaining counter lands on zero.
func (b *Builder) TaggedLocation(lon, lat float64, tags ...Tag) *Builder {
	size := 8
	for _, t := range tags {
		size += 1 + len(t.Data)
	}
	return b.TaggedLocationSized(int32(size), lon, lat, tags...)
}

// TaggedLocationSized is TaggedLocation with an explicit declared size.
func (b *Builder) TaggedLocationSized(size int32, lon, lat float64, tags ...Tag) *Builder {
	b.Int32(size).Coordinate(lon).Coordinate(lat)
	for _, t := range tags {
		b.Byte(t.Key).Raw(t.Data)
	}
	return b
}

func be32(v int32) []byte {
	var x Builder
	return x.Int32(v).Bytes()
}

func scaled(v, scale float64) []byte { return be32(int32(math.Round(v * scale))) }

func ElevationTag(m float64) Tag        { return Tag{'e', scaled(m, 1e3)} }
func ElevationAbsentTag() Tag           { return Tag{'e', be32(-999999999)} }
func AccuracyTag(v int32) Tag           { return Tag{'a', be32(v)} }
func PressureTag(v float64) Tag         { return Tag{'p', scaled(v, 1e3)} }
func PressureAbsentTag() Tag            { return Tag{'p', be32(999999999)} }
func VerticalAccuracyTag(m float64) Tag { return Tag{'v', scaled(m, 1e2)} }
func BatteryTag(pct byte) Tag           { return Tag{'b', []byte{pct}} }
func NetworkTag(code, signal byte) Tag  { return Tag{'n', []byte{code, signal}} }
func SatellitesTag(counts [8]byte) Tag  { return Tag{'s', counts[:]} }

func TimeTag(sec float64) Tag {
	var x Builder
	return Tag{'t', x.Timestamp(sec).Bytes()}
}

// Segment appends a segment header for the given era followed by its
// already-encoded locations.
func (b *Builder) Segment(era int, count int32, locations []byte, meta ...Entry) *Builder {
	if era < 3 {
		b.Int32(0)
	} else {
		b.Metadata(era, meta...)
		if era == 4 {
			b.Int32(0).Int32(-1)
		}
	}
	return b.Int32(count).Raw(locations)
}

// Header fields of a legacy (era <= 3) file, written at offsets 8..68.
type Stats struct {
	Locations, Segments, Waypoints int32
	FirstLon, FirstLat, FirstTime  float64
	Length, LengthElevation, Gain  float64
	Duration                       int64
}

// LegacyHeader appends version, header size and the 60-byte statistics block.
func (b *Builder) LegacyHeader(version int32, s Stats) *Builder {
	b.Int32(version).Int32(60)
	b.Int32(s.Locations).Int32(s.Segments).Int32(s.Waypoints)
	b.Coordinate(s.FirstLon).Coordinate(s.FirstLat).Timestamp(s.FirstTime)
	b.Float64(s.Length).Float64(s.LengthElevation).Float64(s.Gain).Int64(s.Duration)
	return b
}

// ModernHeader appends the era-4 prelude: version marker, header size,
// summary block and the two reserved ints.
func (b *Builder) ModernHeader(summary ...Entry) *Builder {
	b.Int32(0x50500e01).Int32(0)
	b.Metadata(4, summary...)
	return b.Int32(3).Int32(-1)
}

// MinimalLegacyTrack returns a complete version-3 file with one waypoint and
// one segment of two points.
func MinimalLegacyTrack() []byte {
	t0 := 1600000000.0
	ele := 100.5
	var locs Builder
	locs.LegacyLocation(20, Point{Lon: 8.5, Lat: 46.5, Elevation: &ele, Time: &t0})
	t1 := t0 + 10
	locs.LegacyLocation(20, Point{Lon: 8.6, Lat: 46.6, Elevation: &ele, Time: &t1})

	var b Builder
	b.LegacyHeader(3, Stats{Locations: 2, Segments: 1, Waypoints: 1, FirstLon: 8.5, FirstLat: 46.5, FirstTime: t0})
	b.Metadata(3, Entry{"name", "Ridge walk"})
	b.Int32(1)
	b.Metadata(3, Entry{"name", "Summit"})
	b.LegacyLocation(20, Point{Lon: 8.55, Lat: 46.55, Elevation: &ele, Time: &t0})
	b.Int32(1)
	b.Segment(3, 2, locs.Bytes())
	return b.Bytes()
}
