package geojson

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"alp2gpx/internal/track"
)

func f64(v float64) *float64 { return &v }
func u8(v uint8) *uint8      { return &v }

func sampleTrack() *track.Track {
	t := &track.Track{Version: 3}
	t.Meta.Set("name", track.StringValue("Ridge"))
	var segMeta track.Metadata
	segMeta.Set("color", track.IntValue(255))
	segMeta.Set("icon", track.BlobValue([]byte{1, 2, 3}))
	t.Segments = []track.Segment{
		{Meta: segMeta, Points: []track.TrackPoint{
			{Lon: 8.5, Lat: 46.5, Elevation: f64(1200), Timestamp: f64(1600000000), Battery: u8(90)},
			{Lon: 8.6, Lat: 46.6},
		}},
		{},
	}
	return t
}

func TestBuild_Features(t *testing.T) {
	fc := Build(sampleTrack(), Options{File: "tracks/ridge.trk"})
	if fc.Type != "FeatureCollection" || fc.Source.File != "tracks/ridge.trk" || fc.Source.Version != 3 {
		t.Fatalf("collection header=%+v source=%+v", fc, fc.Source)
	}
	// Two points and one line; the empty segment contributes nothing.
	if len(fc.Features) != 3 {
		t.Fatalf("features=%d want 3", len(fc.Features))
	}
	p0 := fc.Features[0]
	if p0.Geometry.Type != "Point" {
		t.Fatalf("geometry=%s", p0.Geometry.Type)
	}
	if c := p0.Geometry.Coordinates.([]float64); len(c) != 3 || c[0] != 8.5 || c[2] != 1200 {
		t.Fatalf("coords=%v", c)
	}
	if c := fc.Features[1].Geometry.Coordinates.([]float64); len(c) != 2 {
		t.Fatalf("coords without elevation=%v", c)
	}
	props := p0.Properties
	if props["trackStem"] != "ridge" || props["segmentIndex"] != 0 || props["pointIndex"] != 0 {
		t.Fatalf("props=%v", props)
	}
	if props["time"] != "2020-09-13T12:26:40Z" || props["battery"] != 90 {
		t.Fatalf("props=%v", props)
	}
	if _, ok := props["trackIndex"]; ok {
		t.Fatalf("trackIndex set without Options.TrackIndex")
	}
	if _, ok := fc.Features[1].Properties["elevation"]; ok {
		t.Fatalf("absent elevation exported")
	}
	line := fc.Features[2]
	if line.Geometry.Type != "LineString" || len(line.Geometry.Coordinates.([][]float64)) != 2 {
		t.Fatalf("line=%+v", line)
	}
	if len(fc.Segments) != 1 || fc.Segments[0].SegmentIndex != 0 {
		t.Fatalf("segments=%+v", fc.Segments)
	}
}

func TestBuild_DeterministicIDs(t *testing.T) {
	a := Build(sampleTrack(), Options{File: "x.trk"})
	b := Build(sampleTrack(), Options{File: "x.trk"})
	idx := 1
	c := Build(sampleTrack(), Options{File: "x.trk", TrackIndex: &idx})

	seen := map[string]bool{}
	for i := range a.Features {
		if a.Features[i].ID != b.Features[i].ID {
			t.Fatalf("feature %d id changed between builds", i)
		}
		if a.Features[i].ID == c.Features[i].ID {
			t.Fatalf("feature %d id ignores track index", i)
		}
		if seen[a.Features[i].ID] {
			t.Fatalf("duplicate id %s", a.Features[i].ID)
		}
		seen[a.Features[i].ID] = true
		if _, err := uuid.Parse(a.Features[i].ID); err != nil {
			t.Fatalf("id %q: %v", a.Features[i].ID, err)
		}
	}
	if c.Features[0].Properties["trackIndex"] != 1 {
		t.Fatalf("trackIndex=%v", c.Features[0].Properties["trackIndex"])
	}
}

func TestWrite_SegmentMetaEncoding(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Build(sampleTrack(), Options{File: "a&b.trk"}), false); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"segmentMeta":{"color":255,"icon":"AQID"}`) {
		t.Fatalf("segment meta not encoded in order: %s", out)
	}
	if !strings.Contains(out, `"file":"a&b.trk"`) {
		t.Fatalf("html escaping applied: %s", out)
	}
}

type generic struct {
	Type     string            `json:"type"`
	Name     string            `json:"name"`
	Custom   string            `json:"custom"`
	Features []json.RawMessage `json:"features"`
	Segments []json.RawMessage `json:"segments"`
	Source   struct {
		File string `json:"file"`
	} `json:"source"`
}

func readGeneric(t *testing.T, path string) generic {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var g generic
	if err := json.Unmarshal(raw, &g); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return g
}

func TestAppend_CreatesAndMerges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "all.geojson")

	first := Build(sampleTrack(), Options{File: "one.trk"})
	if err := Append(path, first, false); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	g := readGeneric(t, path)
	if g.Type != "FeatureCollection" || len(g.Features) != 3 || len(g.Segments) != 1 || g.Source.File != "one.trk" {
		t.Fatalf("after first append: %+v", g)
	}

	second := Build(sampleTrack(), Options{File: "two.trk"})
	second.Name = "Other"
	if err := Append(path, second, true); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	g = readGeneric(t, path)
	if len(g.Features) != 6 || len(g.Segments) != 2 {
		t.Fatalf("features=%d segments=%d", len(g.Features), len(g.Segments))
	}
	if g.Name == "Other" || g.Source.File != "one.trk" {
		t.Fatalf("existing name/source overwritten: name=%q source=%q", g.Name, g.Source.File)
	}
}

func TestAppend_KeepsUnknownMembersAndRecoversFromGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.geojson")
	if err := os.WriteFile(path, []byte(`{"type":"FeatureCollection","custom":"keep","features":[]}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Append(path, Build(sampleTrack(), Options{File: "a.trk"}), false); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if g := readGeneric(t, path); g.Custom != "keep" || len(g.Features) != 3 {
		t.Fatalf("got %+v", g)
	}

	bad := filepath.Join(dir, "bad.geojson")
	if err := os.WriteFile(bad, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Append(bad, Build(sampleTrack(), Options{File: "a.trk"}), false); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if g := readGeneric(t, bad); g.Type != "FeatureCollection" || len(g.Features) != 3 {
		t.Fatalf("got %+v", g)
	}
}
