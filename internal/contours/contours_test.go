package contours

import (
	"math"
	"testing"

	"alp2gpx/internal/track"
)

func acc(v int32) *int32 { return &v }

// metres per degree of latitude on the model sphere
const mPerDeg = earthRadiusM * math.Pi / 180

func TestBuild_NorthboundOffsetsEastWest(t *testing.T) {
	pts := []track.TrackPoint{
		{Lat: 0, Lon: 0, Accuracy: acc(10)},
		{Lat: 0.001, Lon: 0, Accuracy: acc(10)},
		{Lat: 0.002, Lon: 0},
	}
	left, right := Build(pts)
	if len(left) != 3 || len(right) != 3 {
		t.Fatalf("len left=%d right=%d", len(left), len(right))
	}
	// Heading north: left is east of the track, right is west.
	wantDeg := 10 / mPerDeg
	if math.Abs(left[0].Lon-wantDeg) > 1e-9 || math.Abs(right[0].Lon+wantDeg) > 1e-9 {
		t.Fatalf("lon left=%v right=%v want ±%v", left[0].Lon, right[0].Lon, wantDeg)
	}
	if math.Abs(left[0].Lat) > 1e-9 {
		t.Fatalf("lat drifted: %v", left[0].Lat)
	}
	if left[2] != pts[2] || right[2] != pts[2] {
		t.Fatalf("point without accuracy was moved")
	}
	if left[1].Accuracy != pts[1].Accuracy {
		t.Fatalf("fields not carried over")
	}
}

func TestBuild_EmptyAndSingle(t *testing.T) {
	if l, r := Build(nil); l != nil || r != nil {
		t.Fatalf("empty input gave %v/%v", l, r)
	}
	left, right := Build([]track.TrackPoint{{Lat: 45, Lon: 7, Accuracy: acc(100)}})
	// Single point heading is north.
	if !(left[0].Lon > 7 && right[0].Lon < 7) {
		t.Fatalf("left=%v right=%v", left[0], right[0])
	}
}

func TestOffset_Distance(t *testing.T) {
	lat, lon := Offset(10, 20, 1000, 0)
	if math.Abs(lon-20) > 1e-12 || math.Abs((lat-10)*mPerDeg-1000) > 1e-6 {
		t.Fatalf("lat=%v lon=%v", lat, lon)
	}
}
