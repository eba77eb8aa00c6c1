package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	FormatGPX     = "gpx"
	FormatGeoJSON = "geojson"

	defaultWorkers = 4
	// Geoid separations stay well inside this range anywhere on Earth.
	maxGeoidOffsetM = 200
)

type Config struct {
	Output    OutputConfig    `yaml:"output"`
	GeoJSON   GeoJSONConfig   `yaml:"geojson"`
	Batch     BatchConfig     `yaml:"batch"`
	Text      TextConfig      `yaml:"text"`
	Elevation ElevationConfig `yaml:"elevation"`
}

type OutputConfig struct {
	Dir        string   `yaml:"dir"`
	Formats    []string `yaml:"formats"`
	Pretty     bool     `yaml:"pretty"`
	Extensions bool     `yaml:"extensions"`
	Contours   bool     `yaml:"contours"`
}

type GeoJSONConfig struct {
	AppendPath string `yaml:"append_path"`
}

type BatchConfig struct {
	Workers     int  `yaml:"workers"`
	Limit       int  `yaml:"limit"`
	SummaryOnly bool `yaml:"summary_only"`
}

type TextConfig struct {
	LegacyCodecs *bool `yaml:"legacy_codecs"`
}

type ElevationConfig struct {
	GeoidOffsetM *float64 `yaml:"geoid_offset_m"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	var cfg Config
	if err := cfg.Normalize(); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, unknownFieldsError(err)
	}

	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// unknownFieldsError rewrites strict-decoding failures into a single line
// naming the offending fields.
func unknownFieldsError(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	fields := make([]string, 0, len(te.Errors))
	for _, e := range te.Errors {
		if !strings.Contains(e, "not found in type") {
			return err
		}
		if strings.HasPrefix(e, "line ") {
			if i := strings.Index(e, ": "); i >= 0 {
				e = e[i+2:]
			}
		}
		fields = append(fields, e)
	}
	return fmt.Errorf("config contains unknown fields: %s", strings.Join(fields, "; "))
}

// Normalize fills defaults and validates. It is safe to call again after
// changing fields, e.g. from command-line overrides.
func (c *Config) Normalize() error {
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{FormatGPX}
	}
	seen := make(map[string]bool, len(c.Output.Formats))
	formats := c.Output.Formats[:0]
	for _, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != FormatGPX && f != FormatGeoJSON {
			return fmt.Errorf("output.formats: unsupported format %q (want gpx or geojson)", f)
		}
		if !seen[f] {
			seen[f] = true
			formats = append(formats, f)
		}
	}
	c.Output.Formats = formats

	if c.GeoJSON.AppendPath != "" && !seen[FormatGeoJSON] {
		return fmt.Errorf("geojson.append_path requires geojson in output.formats")
	}

	if c.Batch.Workers == 0 {
		c.Batch.Workers = defaultWorkers
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1")
	}
	if c.Batch.Limit < 0 {
		return fmt.Errorf("batch.limit must be >= 0")
	}

	if c.Text.LegacyCodecs == nil {
		on := true
		c.Text.LegacyCodecs = &on
	}

	if off := c.Elevation.GeoidOffsetM; off != nil {
		if math.IsNaN(*off) || math.Abs(*off) > maxGeoidOffsetM {
			return fmt.Errorf("elevation.geoid_offset_m must be within ±%d", maxGeoidOffsetM)
		}
	}
	return nil
}

// Wants reports whether format is one of the configured output formats.
func (c *Config) Wants(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// LegacyCodecs reports whether strings fall back to legacy encodings.
func (c *Config) LegacyCodecs() bool {
	return c.Text.LegacyCodecs == nil || *c.Text.LegacyCodecs
}
