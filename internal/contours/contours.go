// Package contours builds left and right tracks offset from a segment by
// each point's horizontal accuracy.
package contours

import (
	"math"

	"alp2gpx/internal/track"
)

const earthRadiusM = 6371000.0

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(rad float64) float64 { return rad * 180 / math.Pi }

// bearing returns the initial great-circle bearing from a to b, in radians.
func bearing(a, b track.TrackPoint) float64 {
	lat1, lat2 := rad(a.Lat), rad(b.Lat)
	dlon := rad(b.Lon - a.Lon)
	if lat1 == lat2 && dlon == 0 {
		return 0
	}
	y := math.Sin(dlon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dlon)
	return math.Atan2(y, x)
}

// Offset moves (lat, lon) distanceM metres along bearingRad on a sphere.
func Offset(lat, lon, distanceM, bearingRad float64) (float64, float64) {
	d := distanceM / earthRadiusM
	lat1, lon1 := rad(lat), rad(lon)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(bearingRad))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearingRad)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
	)
	return deg(lat2), deg(lon2)
}

// heading estimates the direction of travel at pts[i]. Interior points use
// the circular mean of the inbound and outbound bearings.
func heading(pts []track.TrackPoint, i int) float64 {
	switch {
	case len(pts) == 1:
		return 0
	case i == 0:
		return bearing(pts[0], pts[1])
	case i == len(pts)-1:
		return bearing(pts[i-1], pts[i])
	}
	in := bearing(pts[i-1], pts[i])
	out := bearing(pts[i], pts[i+1])
	x := math.Cos(in) + math.Cos(out)
	y := math.Sin(in) + math.Sin(out)
	if x == 0 && y == 0 {
		return in
	}
	return math.Atan2(y, x)
}

// Build returns the left and right contours of pts. Both have one point per
// input point; points without a positive accuracy are copied unchanged.
func Build(pts []track.TrackPoint) (left, right []track.TrackPoint) {
	if len(pts) == 0 {
		return nil, nil
	}
	left = make([]track.TrackPoint, len(pts))
	right = make([]track.TrackPoint, len(pts))
	for i, p := range pts {
		left[i], right[i] = p, p
		if p.Accuracy == nil || *p.Accuracy <= 0 {
			continue
		}
		h := heading(pts, i)
		acc := float64(*p.Accuracy)
		left[i].Lat, left[i].Lon = Offset(p.Lat, p.Lon, acc, h+math.Pi/2)
		right[i].Lat, right[i].Lon = Offset(p.Lat, p.Lon, acc, h-math.Pi/2)
	}
	return left, right
}
