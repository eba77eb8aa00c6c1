// Package geojson renders decoded tracks as GeoJSON FeatureCollections and
// merges them into existing collection files.
package geojson

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"alp2gpx/internal/track"
)

const timeLayout = "2006-01-02T15:04:05Z"

// idSpace scopes the name-based feature ids so that re-exporting the same
// file yields the same ids.
var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/k127/alp2gpx/geojson"))

type FeatureCollection struct {
	Type     string        `json:"type"`
	Name     string        `json:"name,omitempty"`
	Source   *Source       `json:"source,omitempty"`
	Features []Feature     `json:"features"`
	Segments []SegmentInfo `json:"segments,omitempty"`
}

type Source struct {
	File    string `json:"file"`
	Version int    `json:"version"`
}

type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry holds a Point ([lon, lat, ele?]) or a LineString of them.
type Geometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// SegmentInfo exposes a segment's own metadata, keyed by its index.
type SegmentInfo struct {
	SegmentIndex int             `json:"segmentIndex"`
	SegmentMeta  *track.Metadata `json:"segmentMeta"`
}

// Options identifies the exported track.
type Options struct {
	// File is the input path recorded in properties and source.
	File string
	// TrackIndex is set when one input file yields several tracks.
	TrackIndex *int
}

// Build returns one Point feature per track point and one LineString per
// non-empty segment.
func Build(t *track.Track, opts Options) *FeatureCollection {
	name := t.Name()
	stem := strings.TrimSuffix(filepath.Base(opts.File), filepath.Ext(opts.File))
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Name:     name,
		Source:   &Source{File: opts.File, Version: t.Version},
		Features: []Feature{},
	}

	base := func(seg int) map[string]any {
		props := map[string]any{
			"trackName":    name,
			"trackFile":    opts.File,
			"trackStem":    stem,
			"segmentIndex": seg,
		}
		if opts.TrackIndex != nil {
			props["trackIndex"] = *opts.TrackIndex
		}
		return props
	}

	for si := range t.Segments {
		seg := &t.Segments[si]
		line := make([][]float64, 0, len(seg.Points))
		for pi, p := range seg.Points {
			c := coordinates(p)
			line = append(line, c)
			props := base(si)
			props["pointIndex"] = pi
			pointProperties(props, p)
			fc.Features = append(fc.Features, Feature{
				Type:       "Feature",
				ID:         featureID(opts, "point", si, pi),
				Geometry:   Geometry{Type: "Point", Coordinates: c},
				Properties: props,
			})
		}
		if len(line) == 0 {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			ID:         featureID(opts, "line", si, -1),
			Geometry:   Geometry{Type: "LineString", Coordinates: line},
			Properties: base(si),
		})
		if seg.Meta.Len() > 0 {
			fc.Segments = append(fc.Segments, SegmentInfo{SegmentIndex: si, SegmentMeta: &seg.Meta})
		}
	}
	return fc
}

func coordinates(p track.TrackPoint) []float64 {
	if p.Elevation != nil {
		return []float64{p.Lon, p.Lat, *p.Elevation}
	}
	return []float64{p.Lon, p.Lat}
}

func featureID(opts Options, kind string, seg, pt int) string {
	key := opts.File
	if opts.TrackIndex != nil {
		key += "#" + strconv.Itoa(*opts.TrackIndex)
	}
	key += "/" + kind + "/" + strconv.Itoa(seg) + "/" + strconv.Itoa(pt)
	return uuid.NewSHA1(idSpace, []byte(key)).String()
}

// pointProperties adds every field the point carries.
func pointProperties(props map[string]any, p track.TrackPoint) {
	if p.Timestamp != nil {
		props["timeUnix"] = *p.Timestamp
		if ts, ok := track.UnixTime(*p.Timestamp); ok {
			props["time"] = ts.Format(timeLayout)
		}
	}
	setFloat(props, "elevation", p.Elevation)
	if p.Accuracy != nil {
		props["accuracy"] = *p.Accuracy
	}
	setFloat(props, "accuracyVertical", p.VerticalAccuracy)
	setFloat(props, "pressure", p.Pressure)
	setByte(props, "battery", p.Battery)
	setByte(props, "satGps", p.SatGPS)
	setByte(props, "satGlo", p.SatGLONASS)
	setByte(props, "satBds", p.SatBeidou)
	setByte(props, "satGal", p.SatGalileo)
	if n := p.Network; n != nil {
		if n.Type != nil {
			props["networkType"] = *n.Type
		}
		if n.SignalPercent != nil {
			props["networkSignalPercent"] = *n.SignalPercent
		}
		if n.SignalDBm != nil {
			props["networkSignalDbm"] = *n.SignalDBm
		}
		setByte(props, "networkCode", n.Code)
		setByte(props, "networkSignalRaw", n.SignalRaw)
	}
	setFloat(props, "inclination", p.Inclination)
	setFloat(props, "magneticField", p.MagneticField)
	setFloat(props, "elevationWgs84", p.ElevationWGS84)
	setFloat(props, "elevationDem", p.ElevationDEM)
}

func setFloat(props map[string]any, key string, v *float64) {
	if v != nil {
		props[key] = *v
	}
}

func setByte(props map[string]any, key string, v *uint8) {
	if v != nil {
		props[key] = int(*v)
	}
}
