package trk

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/fixture"
)

func reader(b []byte) *binread.Reader {
	return binread.NewReader(bytes.NewReader(b), binread.Options{})
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func f64(v float64) *float64 { return &v }
func i32(v int32) *int32     { return &v }

func TestReadLocation_LegacyFullRecord(t *testing.T) {
	var b fixture.Builder
	b.LegacyLocation(28, fixture.Point{
		Lon: 8.123, Lat: 46.987,
		Elevation: f64(1523.25), Time: f64(1600000123.5),
		Accuracy: i32(7), Pressure: f64(845.125),
	})

	p, err := ReadLocation(reader(b.Bytes()), 3)
	if err != nil {
		t.Fatalf("ReadLocation() error: %v", err)
	}
	if !near(p.Lon, 8.123) || !near(p.Lat, 46.987) {
		t.Fatalf("lon/lat=%v/%v", p.Lon, p.Lat)
	}
	if p.Elevation == nil || !near(*p.Elevation, 1523.25) {
		t.Fatalf("elevation=%v", p.Elevation)
	}
	if p.Timestamp == nil || !near(*p.Timestamp, 1600000123.5) {
		t.Fatalf("timestamp=%v", p.Timestamp)
	}
	if p.Accuracy == nil || *p.Accuracy != 7 {
		t.Fatalf("accuracy=%v", p.Accuracy)
	}
	if p.Pressure == nil || !near(*p.Pressure, 845.125) {
		t.Fatalf("pressure=%v", p.Pressure)
	}
	if p.Battery != nil || p.Network != nil || p.SatGPS != nil || p.VerticalAccuracy != nil {
		t.Fatalf("unexpected tagged-only fields: %+v", p)
	}
}

func TestReadLocation_LegacySizeGatesOptionalFields(t *testing.T) {
	cases := []struct {
		name         string
		size         int32
		wantAccuracy bool
		wantPressure bool
	}{
		{"Size20", 20, false, false},
		{"Size24", 24, true, false},
		{"Size28", 28, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var b fixture.Builder
			b.LegacyLocation(tc.size, fixture.Point{Elevation: f64(1), Time: f64(2), Accuracy: i32(3), Pressure: f64(4)})
			b.Int32(0x7FFF0000) // trailing sentinel must stay unread

			r := reader(b.Bytes())
			p, err := ReadLocation(r, 2)
			if err != nil {
				t.Fatalf("ReadLocation() error: %v", err)
			}
			if (p.Accuracy != nil) != tc.wantAccuracy || (p.Pressure != nil) != tc.wantPressure {
				t.Fatalf("accuracy=%v pressure=%v", p.Accuracy, p.Pressure)
			}
			next, err := r.Int32()
			if err != nil || next != 0x7FFF0000 {
				t.Fatalf("next=%X,%v: record consumed wrong byte count", next, err)
			}
		})
	}
}

func TestReadLocation_SentinelsBothLayouts(t *testing.T) {
	var legacy fixture.Builder
	legacy.LegacyLocation(28, fixture.Point{Time: f64(1)})
	p, err := ReadLocation(reader(legacy.Bytes()), 3)
	if err != nil {
		t.Fatalf("ReadLocation() legacy error: %v", err)
	}
	if p.Elevation != nil || p.Pressure != nil {
		t.Fatalf("legacy sentinels decoded as values: ele=%v p=%v", p.Elevation, p.Pressure)
	}

	var tagged fixture.Builder
	tagged.TaggedLocation(1, 2, fixture.ElevationAbsentTag(), fixture.PressureAbsentTag())
	p, err = ReadLocation(reader(tagged.Bytes()), 4)
	if err != nil {
		t.Fatalf("ReadLocation() tagged error: %v", err)
	}
	if p.Elevation != nil || p.Pressure != nil {
		t.Fatalf("tagged sentinels decoded as values: ele=%v p=%v", p.Elevation, p.Pressure)
	}
}

func TestReadLocation_TaggedOrderIndependent(t *testing.T) {
	e := fixture.ElevationTag(812.5)
	ts := fixture.TimeTag(1700000000.25)
	a := fixture.AccuracyTag(12)
	orders := [][]fixture.Tag{
		{e, ts, a},
		{a, e, ts},
		{ts, a, e},
	}
	for i, tags := range orders {
		var b fixture.Builder
		b.TaggedLocation(-3.5, 40.25, tags...)
		b.Int32(0x01020304)

		r := reader(b.Bytes())
		p, err := ReadLocation(r, 4)
		if err != nil {
			t.Fatalf("order %d: ReadLocation() error: %v", i, err)
		}
		if p.Elevation == nil || !near(*p.Elevation, 812.5) {
			t.Fatalf("order %d: elevation=%v", i, p.Elevation)
		}
		if p.Timestamp == nil || !near(*p.Timestamp, 1700000000.25) {
			t.Fatalf("order %d: timestamp=%v", i, p.Timestamp)
		}
		if p.Accuracy == nil || *p.Accuracy != 12 {
			t.Fatalf("order %d: accuracy=%v", i, p.Accuracy)
		}
		if next, _ := r.Int32(); next != 0x01020304 {
			t.Fatalf("order %d: record not consumed exactly, next=%X", i, next)
		}
	}
}

func TestReadLocation_TaggedExtendedFields(t *testing.T) {
	var b fixture.Builder
	b.TaggedLocation(10, 20,
		fixture.PressureTag(1001.5),
		fixture.NetworkTag(34, 64),
		fixture.BatteryTag(87),
		fixture.SatellitesTag([8]byte{0, 5, 0, 7, 0, 3, 9, 0}),
		fixture.VerticalAccuracyTag(3.25),
	)
	p, err := ReadLocation(reader(b.Bytes()), 4)
	if err != nil {
		t.Fatalf("ReadLocation() error: %v", err)
	}
	if p.Pressure == nil || !near(*p.Pressure, 1001.5) {
		t.Fatalf("pressure=%v", p.Pressure)
	}
	if p.Network == nil || *p.Network.Type != "4G/LTE" || *p.Network.SignalPercent != 50 || *p.Network.SignalDBm != 15 {
		t.Fatalf("network=%+v", p.Network)
	}
	if *p.Network.Code != 34 || *p.Network.SignalRaw != 64 {
		t.Fatalf("raw network bytes=%v/%v", *p.Network.Code, *p.Network.SignalRaw)
	}
	if p.Battery == nil || *p.Battery != 87 {
		t.Fatalf("battery=%v", p.Battery)
	}
	if *p.SatGPS != 5 || *p.SatGLONASS != 7 || *p.SatBeidou != 3 || *p.SatGalileo != 9 {
		t.Fatalf("sats=%d/%d/%d/%d", *p.SatGPS, *p.SatGLONASS, *p.SatBeidou, *p.SatGalileo)
	}
	if p.VerticalAccuracy == nil || !near(*p.VerticalAccuracy, 3.25) {
		t.Fatalf("vertical accuracy=%v", p.VerticalAccuracy)
	}
	if p.Inclination != nil || p.MagneticField != nil || p.ElevationWGS84 != nil || p.ElevationDEM != nil {
		t.Fatalf("reserved fields must stay nil")
	}
}

func TestReadLocation_UnknownTagConsumesRemainder(t *testing.T) {
	var b fixture.Builder
	b.TaggedLocation(1, 2,
		fixture.ElevationTag(5),
		fixture.Tag{Key: 'x', Data: []byte{0xAA, 0xBB, 0xCC, 't', 0, 0}},
	)
	b.TaggedLocation(7, 8, fixture.TimeTag(42))

	r := reader(b.Bytes())
	first, err := ReadLocation(r, 4)
	if err != nil {
		t.Fatalf("first ReadLocation() error: %v", err)
	}
	if first.Elevation == nil || !near(*first.Elevation, 5) || first.Timestamp != nil {
		t.Fatalf("first=%+v", first)
	}
	second, err := ReadLocation(r, 4)
	if err != nil {
		t.Fatalf("second ReadLocation() error: %v", err)
	}
	if !near(second.Lon, 7) || !near(second.Lat, 8) || second.Timestamp == nil || !near(*second.Timestamp, 42) {
		t.Fatalf("second=%+v", second)
	}
}

func TestReadLocation_TaggedOverrunIsFatal(t *testing.T) {
	var b fixture.Builder
	// Declares room for 3 bytes of fields but carries a 9-byte timestamp.
	b.TaggedLocationSized(11, 0, 0, fixture.TimeTag(1))
	_, err := ReadLocation(reader(b.Bytes()), 4)
	if !errors.Is(err, ErrLocationOverrun) {
		t.Fatalf("err=%v want ErrLocationOverrun", err)
	}
}

func TestReadLocation_UnsupportedVersion(t *testing.T) {
	for _, v := range []int{0, 5, -1} {
		var b fixture.Builder
		b.LegacyLocation(20, fixture.Point{})
		_, err := ReadLocation(reader(b.Bytes()), v)
		if !errors.Is(err, ErrUnsupportedLocationFormat) {
			t.Fatalf("version %d: err=%v want ErrUnsupportedLocationFormat", v, err)
		}
	}
}

func TestReadLocation_Truncated(t *testing.T) {
	var b fixture.Builder
	b.TaggedLocation(1, 2, fixture.TimeTag(3))
	in := b.Bytes()[:len(b.Bytes())-3]
	_, err := ReadLocation(reader(in), 4)
	if !errors.Is(err, binread.ErrTruncatedInput) {
		t.Fatalf("err=%v want ErrTruncatedInput", err)
	}
}
