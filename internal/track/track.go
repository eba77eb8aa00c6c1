package track

import (
	"math"
	"strings"
	"time"
)

// Segment is an ordered run of points plus its own metadata.
type Segment struct {
	Meta   Metadata
	Points []TrackPoint
}

// Waypoint pairs metadata with a single location.
type Waypoint struct {
	Meta     Metadata
	Location TrackPoint
}

// Stats is the fixed statistics block of legacy (era <= 3) headers.
type Stats struct {
	Locations int32
	Segments  int32
	Waypoints int32

	FirstLon  float64
	FirstLat  float64
	FirstTime float64 // Unix seconds

	Length          float64 // m
	LengthElevation float64 // m, including elevation changes
	ElevationGain   float64 // m
	Duration        int64   // s
}

// Track is one decoded TRK stream. It is built once by the decoder and not
// modified afterwards.
type Track struct {
	Version    int // era 1-4
	HeaderSize int32

	// Summary is only present for era 4.
	Summary *Metadata
	// Stats is only present for era <= 3 files whose header carries it.
	Stats *Stats

	Meta      Metadata
	Waypoints []Waypoint
	Segments  []Segment
}

// SummaryStartKey holds the first-location time in milliseconds in era-4 summaries.
const SummaryStartKey = "dte"

// PointCount is the total number of points across all segments.
func (t *Track) PointCount() int {
	n := 0
	for _, s := range t.Segments {
		n += len(s.Points)
	}
	return n
}

// StartTime returns the time of the first location. Legacy files take it
// from the header statistics, era-4 files from the summary; otherwise the
// first timestamped point is used.
func (t *Track) StartTime() (time.Time, bool) {
	if t.Version <= 3 && t.Stats != nil {
		return UnixTime(t.Stats.FirstTime)
	}
	if t.Summary != nil {
		if v, ok := t.Summary.Get(SummaryStartKey); ok {
			if ms, ok := v.Number(); ok {
				return UnixTime(ms * 1e-3)
			}
		}
	}
	for _, s := range t.Segments {
		for _, p := range s.Points {
			if p.Timestamp != nil {
				return UnixTime(*p.Timestamp)
			}
		}
	}
	return time.Time{}, false
}

// Name returns the track's display name: the start time, followed by the
// metadata name when present.
func (t *Track) Name() string {
	name, _ := t.Meta.Text("name")
	start, ok := t.StartTime()
	if !ok {
		return name
	}
	ts := start.Format("2006-01-02 15:04:05")
	if name == "" {
		return ts
	}
	return ts + " " + name
}

var stemReplacer = strings.NewReplacer(";", "-", ":", "-", "!", "-", "*", "-", "/", "-", "\\", "-", ".", "-", ",", "-")

// FileStem returns a filesystem-safe base name derived from the start date
// and metadata name.
func (t *Track) FileStem() string {
	name, _ := t.Meta.Text("name")
	var stem string
	if start, ok := t.StartTime(); ok {
		stem = start.Format("06-01-02")
	}
	if name != "" {
		stem = strings.TrimSpace(stem + " " + name)
	}
	return strings.TrimSpace(stemReplacer.Replace(stem))
}

// UnixTime converts fractional Unix seconds, rejecting values outside the
// range a GPS timestamp can sensibly take.
func UnixTime(sec float64) (time.Time, bool) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || math.Abs(sec) > 1e11 {
		return time.Time{}, false
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC(), true
}
