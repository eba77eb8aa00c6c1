package main

import (
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"alp2gpx/internal/config"
	"alp2gpx/internal/convert"
	"alp2gpx/internal/track"
)

type trackSummary struct {
	Name        string
	Version     int
	HeaderSize  int32
	Waypoints   int
	Segments    int
	Points      int
	First       time.Time
	Last        time.Time
	Duration    time.Duration
	FieldCounts map[string]int
}

func summarizeTrack(t *track.Track) trackSummary {
	s := trackSummary{
		Name:        t.Name(),
		Version:     t.Version,
		HeaderSize:  t.HeaderSize,
		Waypoints:   len(t.Waypoints),
		Segments:    len(t.Segments),
		FieldCounts: map[string]int{},
	}

	hasTime := false
	for _, seg := range t.Segments {
		for _, p := range seg.Points {
			s.Points++
			countFields(s.FieldCounts, p)
			if p.Timestamp == nil {
				continue
			}
			at, ok := track.UnixTime(*p.Timestamp)
			if !ok {
				continue
			}
			if !hasTime || at.Before(s.First) {
				s.First = at
			}
			if !hasTime || at.After(s.Last) {
				s.Last = at
			}
			hasTime = true
		}
	}
	if hasTime {
		s.Duration = s.Last.Sub(s.First)
	}
	return s
}

func countFields(counts map[string]int, p track.TrackPoint) {
	present := map[string]bool{
		"elevation":         p.Elevation != nil,
		"time":              p.Timestamp != nil,
		"accuracy":          p.Accuracy != nil,
		"vertical_accuracy": p.VerticalAccuracy != nil,
		"pressure":          p.Pressure != nil,
		"battery":           p.Battery != nil,
		"satellites":        p.SatGPS != nil || p.SatGLONASS != nil || p.SatBeidou != nil || p.SatGalileo != nil,
		"network":           p.Network != nil,
	}
	for k, ok := range present {
		if ok {
			counts[k]++
		}
	}
}

func runInspect(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("inspect: no input files")
	}
	c := convert.New(*cfg)
	for i, path := range fs.Args() {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		if err := printTrackSummary(stdout, path, c); err != nil {
			return err
		}
	}
	return nil
}

func printTrackSummary(w io.Writer, path string, c *convert.Converter) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	kind, err := convert.Detect(path)
	if err != nil {
		return err
	}
	decoded, err := c.DecodeFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "format: %s\n", kind)
	fmt.Fprintf(w, "tracks: %d\n", len(decoded))
	for i, d := range decoded {
		s := summarizeTrack(d.Track)
		fmt.Fprintf(w, "track[%d]:\n", i)
		if kind == convert.KindLDK {
			fmt.Fprintf(w, "  ldk_path: %s\n", d.Path)
			fmt.Fprintf(w, "  ldk_uuid: %08X\n", d.UUID)
		}
		fmt.Fprintf(w, "  name: %s\n", s.Name)
		fmt.Fprintf(w, "  version: %d\n", s.Version)
		fmt.Fprintf(w, "  header_size: %d\n", s.HeaderSize)
		fmt.Fprintf(w, "  waypoints: %d\n", s.Waypoints)
		fmt.Fprintf(w, "  segments: %d\n", s.Segments)
		fmt.Fprintf(w, "  points: %d\n", s.Points)
		if !s.First.IsZero() {
			fmt.Fprintf(w, "  first: %s\n", s.First.Format(time.RFC3339))
			fmt.Fprintf(w, "  last: %s\n", s.Last.Format(time.RFC3339))
			fmt.Fprintf(w, "  duration: %s\n", s.Duration)
		}

		keys := make([]string, 0, len(s.FieldCounts))
		for k := range s.FieldCounts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "  point_fields:\n")
		for _, k := range keys {
			fmt.Fprintf(w, "    %s: %d\n", k, s.FieldCounts[k])
		}
	}
	return nil
}
