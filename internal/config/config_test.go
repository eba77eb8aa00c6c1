package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "output: {}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Output.Dir != "." {
		t.Fatalf("dir=%q want .", cfg.Output.Dir)
	}
	if !reflect.DeepEqual(cfg.Output.Formats, []string{"gpx"}) {
		t.Fatalf("formats=%v want [gpx]", cfg.Output.Formats)
	}
	if cfg.Batch.Workers != 4 || cfg.Batch.Limit != 0 {
		t.Fatalf("batch=%+v", cfg.Batch)
	}
	if !cfg.LegacyCodecs() {
		t.Fatalf("legacy codecs should default on")
	}
	if cfg.Elevation.GeoidOffsetM != nil {
		t.Fatalf("geoid offset set by default")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, ""))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("empty file cfg=%+v want defaults", cfg)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeTempConfig(t, `output:
  dir: ./out
  formats: [GPX, geojson, gpx]
  pretty: true
  extensions: true
  contours: true
geojson:
  append_path: ./out/all.geojson
batch:
  workers: 2
  limit: 10
  summary_only: true
text:
  legacy_codecs: false
elevation:
  geoid_offset_m: 48.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Output.Formats, []string{"gpx", "geojson"}) {
		t.Fatalf("formats=%v", cfg.Output.Formats)
	}
	if !cfg.Wants(FormatGeoJSON) || !cfg.Output.Pretty || !cfg.Output.Extensions || !cfg.Output.Contours {
		t.Fatalf("output=%+v", cfg.Output)
	}
	if cfg.Batch.Workers != 2 || cfg.Batch.Limit != 10 || !cfg.Batch.SummaryOnly {
		t.Fatalf("batch=%+v", cfg.Batch)
	}
	if cfg.LegacyCodecs() {
		t.Fatalf("legacy codecs should be off")
	}
	if cfg.Elevation.GeoidOffsetM == nil || *cfg.Elevation.GeoidOffsetM != 48.5 {
		t.Fatalf("geoid offset=%v", cfg.Elevation.GeoidOffsetM)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "UnknownFormat",
			body: "output:\n  formats: [kml]\n",
			want: `output.formats: unsupported format "kml" (want gpx or geojson)`,
		},
		{
			name: "AppendNeedsGeoJSON",
			body: "geojson:\n  append_path: x.geojson\n",
			want: "geojson.append_path requires geojson in output.formats",
		},
		{
			name: "NegativeWorkers",
			body: "batch:\n  workers: -1\n",
			want: "batch.workers must be >= 1",
		},
		{
			name: "NegativeLimit",
			body: "batch:\n  limit: -3\n",
			want: "batch.limit must be >= 0",
		},
		{
			name: "GeoidOffsetRange",
			body: "elevation:\n  geoid_offset_m: 1000\n",
			want: "elevation.geoid_offset_m must be within ±200",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.body))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "output:\n  dir: out\n  mode: fast\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field mode not found in type config.OutputConfig")
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
