// Package convert turns TRK and LDK files into GPX and GeoJSON outputs.
package convert

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/config"
	"alp2gpx/internal/geoid"
	"alp2gpx/internal/geojson"
	"alp2gpx/internal/gpx"
	"alp2gpx/internal/ldk"
	"alp2gpx/internal/source"
	"alp2gpx/internal/track"
	"alp2gpx/internal/trk"
)

// ErrUnsupportedFormat is returned for inputs whose extension is neither
// .trk nor .ldk.
var ErrUnsupportedFormat = errors.New("unsupported input format")

type Kind int

const (
	KindTRK Kind = iota + 1
	KindLDK
)

func (k Kind) String() string {
	switch k {
	case KindTRK:
		return "trk"
	case KindLDK:
		return "ldk"
	default:
		return "unknown"
	}
}

// Detect picks the decoder from the file extension, ignoring case.
func Detect(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".trk":
		return KindTRK, nil
	case ".ldk":
		return KindLDK, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
}

// Decoded is one track read from an input file. Path and UUID are only set
// for tracks embedded in an LDK archive.
type Decoded struct {
	Track *track.Track
	Path  string
	UUID  uint32
}

// Result describes one converted input file.
type Result struct {
	Input    string
	Outputs  []string
	Tracks   int
	Segments int
	Points   int
	Version  int
}

// Converter decodes and exports files according to a configuration. It is
// safe for concurrent use; each call opens its own byte source.
type Converter struct {
	cfg  config.Config
	opts binread.Options

	// Serializes writes to the shared GeoJSON append target.
	appendMu sync.Mutex
}

func New(cfg config.Config) *Converter {
	var opts binread.Options
	if !cfg.LegacyCodecs() {
		opts.Text = binread.UTF8Only()
	}
	if off := cfg.Elevation.GeoidOffsetM; off != nil {
		opts.Heights = geoid.Constant{SeparationM: *off}
	}
	return &Converter{cfg: cfg, opts: opts}
}

// DecodeFile reads every track in path. A TRK file yields exactly one.
func (c *Converter) DecodeFile(path string) ([]Decoded, error) {
	kind, err := Detect(path)
	if err != nil {
		return nil, err
	}
	f, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch kind {
	case KindTRK:
		t, err := trk.Decode(f, c.opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return []Decoded{{Track: t}}, nil
	default:
		d := ldk.Decoder{Options: c.opts, Logf: log.Printf}
		a, err := d.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out := make([]Decoded, 0, len(a.Items))
		for _, it := range a.Items {
			out = append(out, Decoded{Track: it.Track, Path: it.Path, UUID: it.UUID})
		}
		return out, nil
	}
}

// ConvertFile decodes path and writes the configured outputs to the output
// directory. Outputs are named after the input file; archives holding
// several tracks get a "-<index>" suffix per track.
func (c *Converter) ConvertFile(path string) (Result, error) {
	return c.convertInto(path, target{dir: c.cfg.Output.Dir, stem: inputStem(path)})
}

// target is where one input's outputs are written: dir/stem[-i].ext.
type target struct {
	dir  string
	stem string
}

func inputStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (c *Converter) convertInto(path string, to target) (Result, error) {
	res := Result{Input: path}
	tracks, err := c.DecodeFile(path)
	if err != nil {
		return res, err
	}
	res.Tracks = len(tracks)
	if len(tracks) == 0 {
		log.Printf("convert: %s: no tracks found", path)
		return res, nil
	}
	if err := os.MkdirAll(to.dir, 0o755); err != nil {
		return res, err
	}

	for i, d := range tracks {
		t := d.Track
		res.Version = t.Version
		res.Segments += len(t.Segments)
		res.Points += t.PointCount()

		name := to.stem
		var index *int
		if len(tracks) > 1 {
			name = fmt.Sprintf("%s-%d", to.stem, i)
			index = &i
		}
		if c.cfg.Wants(config.FormatGPX) {
			out := filepath.Join(to.dir, name+".gpx")
			if err := c.writeGPX(out, t); err != nil {
				return res, err
			}
			res.Outputs = append(res.Outputs, out)
		}
		if c.cfg.Wants(config.FormatGeoJSON) {
			out, err := c.writeGeoJSON(path, to.dir, name, index, t)
			if err != nil {
				return res, err
			}
			res.Outputs = append(res.Outputs, out)
		}
	}
	return res, nil
}

func (c *Converter) writeGPX(out string, t *track.Track) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	err = gpx.Write(f, t, gpx.Options{
		Extensions: c.cfg.Output.Extensions,
		Contours:   c.cfg.Output.Contours,
		Pretty:     c.cfg.Output.Pretty,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

func (c *Converter) writeGeoJSON(input, dir, name string, index *int, t *track.Track) (string, error) {
	fc := geojson.Build(t, geojson.Options{File: input, TrackIndex: index})
	if p := c.cfg.GeoJSON.AppendPath; p != "" {
		c.appendMu.Lock()
		defer c.appendMu.Unlock()
		if err := geojson.Append(p, fc, c.cfg.Output.Pretty); err != nil {
			return "", fmt.Errorf("append %s: %w", p, err)
		}
		return p, nil
	}

	out := filepath.Join(dir, name+".geojson")
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	err = geojson.Write(f, fc, c.cfg.Output.Pretty)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
