// Package gpx writes decoded tracks as GPX 1.1 documents.
package gpx

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"alp2gpx/internal/contours"
	"alp2gpx/internal/track"
)

const (
	Namespace   = "http://www.topografix.com/GPX/1/1"
	AQNamespace = "https://alpinequest.net/xmlschemas/gpx/trackpoint/1"

	creator     = "alp2gpx"
	projectLink = "https://github.com/k127/alp2gpx"
	timeLayout  = "2006-01-02T15:04:05Z"
)

// Options controls optional output.
type Options struct {
	// Extensions adds per-point sensor data under the aq: namespace.
	Extensions bool
	// Contours adds left and right accuracy tracks after each segment.
	Contours bool
	// Pretty indents the document.
	Pretty bool
}

type document struct {
	XMLName   xml.Name   `xml:"http://www.topografix.com/GPX/1/1 gpx"`
	AQ        string     `xml:"xmlns:aq,attr,omitempty"`
	Version   string     `xml:"version,attr"`
	Creator   string     `xml:"creator,attr"`
	Metadata  metadata   `xml:"metadata"`
	Waypoints []waypoint `xml:"wpt"`
	Tracks    []trk      `xml:"trk"`
}

type metadata struct {
	Desc string `xml:"desc"`
	Link link   `xml:"link"`
}

type link struct {
	Href string `xml:"href,attr"`
}

type waypoint struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Ele  string `xml:"ele,omitempty"`
	Name string `xml:"name,omitempty"`
}

type trk struct {
	Name string `xml:"name"`
	Seg  trkseg `xml:"trkseg"`
}

type trkseg struct {
	Points []trkpt `xml:"trkpt"`
}

type trkpt struct {
	Lat        string      `xml:"lat,attr"`
	Lon        string      `xml:"lon,attr"`
	Ele        string      `xml:"ele,omitempty"`
	Time       string      `xml:"time,omitempty"`
	Extensions *extensions `xml:"extensions,omitempty"`
}

type extensions struct {
	Accuracy         *int32      `xml:"aq:accuracy,omitempty"`
	AccuracyVertical string      `xml:"aq:accuracyVertical,omitempty"`
	Pressure         string      `xml:"aq:pressure,omitempty"`
	Battery          *uint8      `xml:"aq:battery,omitempty"`
	ElevationWGS84   string      `xml:"aq:elevationWgs84,omitempty"`
	ElevationDEM     string      `xml:"aq:elevationDem,omitempty"`
	Satellites       *satellites `xml:"aq:satellites,omitempty"`
	Network          *network    `xml:"aq:network,omitempty"`
	Inclination      string      `xml:"aq:inclination,omitempty"`
	MagneticField    string      `xml:"aq:magneticField,omitempty"`
}

type satellites struct {
	GPS *uint8 `xml:"aq:gps,omitempty"`
	GLO *uint8 `xml:"aq:glo,omitempty"`
	BDS *uint8 `xml:"aq:bds,omitempty"`
	GAL *uint8 `xml:"aq:gal,omitempty"`
}

type network struct {
	SignalPercent *int    `xml:"aq:signalPercent,omitempty"`
	SignalDBm     *int    `xml:"aq:signalDbm,omitempty"`
	Type          *string `xml:"aq:type,omitempty"`
}

// Write encodes t as a GPX document: one wpt per waypoint and one trk per
// segment, each named after the track.
func Write(w io.Writer, t *track.Track, opts Options) error {
	name := t.Name()
	doc := document{
		Version:  "1.1",
		Creator:  creator,
		Metadata: metadata{Desc: name, Link: link{Href: projectLink}},
	}
	if opts.Extensions {
		doc.AQ = AQNamespace
	}
	for _, wp := range t.Waypoints {
		wname, _ := wp.Meta.Text("name")
		doc.Waypoints = append(doc.Waypoints, waypoint{
			Lat:  formatFloat(wp.Location.Lat),
			Lon:  formatFloat(wp.Location.Lon),
			Ele:  formatOptional(wp.Location.Elevation),
			Name: wname,
		})
	}
	for _, s := range t.Segments {
		doc.Tracks = append(doc.Tracks, newTrk(name, s.Points, opts))
		if opts.Contours {
			left, right := contours.Build(s.Points)
			doc.Tracks = append(doc.Tracks,
				newTrk(name+" (accuracy left)", left, opts),
				newTrk(name+" (accuracy right)", right, opts),
			)
		}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	if opts.Pretty {
		enc.Indent("", "  ")
	}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("gpx: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func newTrk(name string, pts []track.TrackPoint, opts Options) trk {
	out := trk{Name: name, Seg: trkseg{Points: make([]trkpt, 0, len(pts))}}
	for _, p := range pts {
		tp := trkpt{
			Lat: formatFloat(p.Lat),
			Lon: formatFloat(p.Lon),
			Ele: formatOptional(p.Elevation),
		}
		if p.Timestamp != nil {
			if ts, ok := track.UnixTime(*p.Timestamp); ok {
				tp.Time = ts.Format(timeLayout)
			}
		}
		if opts.Extensions && p.HasExtensions() {
			tp.Extensions = newExtensions(p)
		}
		out.Seg.Points = append(out.Seg.Points, tp)
	}
	return out
}

func newExtensions(p track.TrackPoint) *extensions {
	ext := &extensions{
		Accuracy:         p.Accuracy,
		AccuracyVertical: formatOptional(p.VerticalAccuracy),
		Pressure:         formatOptional(p.Pressure),
		Battery:          p.Battery,
		ElevationWGS84:   formatOptional(p.ElevationWGS84),
		ElevationDEM:     formatOptional(p.ElevationDEM),
		Inclination:      formatOptional(p.Inclination),
		MagneticField:    formatOptional(p.MagneticField),
	}
	if p.SatGPS != nil || p.SatGLONASS != nil || p.SatBeidou != nil || p.SatGalileo != nil {
		ext.Satellites = &satellites{GPS: p.SatGPS, GLO: p.SatGLONASS, BDS: p.SatBeidou, GAL: p.SatGalileo}
	}
	if n := p.Network; n != nil && (n.Type != nil || n.SignalPercent != nil || n.SignalDBm != nil) {
		ext.Network = &network{SignalPercent: n.SignalPercent, SignalDBm: n.SignalDBm, Type: n.Type}
	}
	return ext
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
