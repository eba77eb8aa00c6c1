package convert

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"alp2gpx/internal/binread"
	"alp2gpx/internal/trk"
)

// FindTracks returns every .trk and .ldk file below dir, sorted.
func FindTracks(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := Detect(path); err == nil {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Header is the cheap first-8-bytes view of an input file.
type Header struct {
	Kind Kind
	// Version is the TRK era or the LDK archive version.
	Version    int
	HeaderSize int32
}

func (h Header) String() string {
	if h.Kind == KindLDK {
		return fmt.Sprintf("ldk\tversion=%d", h.Version)
	}
	return fmt.Sprintf("version=%d\theader=%d", h.Version, h.HeaderSize)
}

// Probe reads only the leading bytes of path.
func Probe(path string) (Header, error) {
	kind, err := Detect(path)
	if err != nil {
		return Header{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	if kind == KindTRK {
		era, size, err := trk.ReadHeader(f)
		if err != nil {
			return Header{}, err
		}
		return Header{Kind: kind, Version: era, HeaderSize: size}, nil
	}
	var b [8]byte
	if _, err := io.ReadFull(f, b[:]); err != nil {
		return Header{}, fmt.Errorf("%w: ldk header: %v", binread.ErrTruncatedInput, err)
	}
	return Header{Kind: kind, Version: int(int32(binary.BigEndian.Uint32(b[4:8])))}, nil
}

// Summary counts the outcome of a batch.
type Summary struct {
	Files     int
	Converted int
	Failed    int
}

type batchResult struct {
	header Header
	probe  error
	res    Result
	err    error
}

// Batch converts paths with a bounded pool of workers, one byte source per
// file. Progress lines are written to w in input order. A failing file is
// reported and counted; it does not stop the batch. Cancelling ctx skips
// files that have not started.
//
// Outputs mirror each input's directory relative to the deepest directory
// containing all inputs, so same-named files in different folders do not
// share an output path.
func (c *Converter) Batch(ctx context.Context, paths []string, w io.Writer) (Summary, error) {
	if limit := c.cfg.Batch.Limit; limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	n := len(paths)
	targets := outputTargets(c.cfg.Output.Dir, paths)
	results := make([]batchResult, n)
	done := make([]chan struct{}, n)
	jobs := make(chan int, n)
	for i := range paths {
		done[i] = make(chan struct{})
		jobs <- i
	}
	close(jobs)

	workers := min(max(c.cfg.Batch.Workers, 1), max(n, 1))
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.batchOne(ctx, paths[i], targets[i])
				close(done[i])
			}
		}()
	}

	var sum Summary
	for i, p := range paths {
		<-done[i]
		r := results[i]
		sum.Files++
		if r.probe != nil {
			sum.Failed++
			fmt.Fprintf(w, "[%02d] %s\terror=%v\n", i+1, p, r.probe)
			continue
		}
		fmt.Fprintf(w, "[%02d] %s\t%s\n", i+1, p, r.header)
		if c.cfg.Batch.SummaryOnly {
			continue
		}
		if r.err != nil {
			sum.Failed++
			fmt.Fprintf(w, "     !! %v\n", r.err)
			continue
		}
		sum.Converted++
		fmt.Fprintf(w, "     -> %s (tracks=%d, segments=%d, points=%d, version=%d)\n",
			strings.Join(r.res.Outputs, ", "), r.res.Tracks, r.res.Segments, r.res.Points, r.res.Version)
	}
	wg.Wait()
	return sum, ctx.Err()
}

func (c *Converter) batchOne(ctx context.Context, path string, to target) batchResult {
	if err := ctx.Err(); err != nil {
		return batchResult{probe: err}
	}
	var r batchResult
	r.header, r.probe = Probe(path)
	if r.probe != nil || c.cfg.Batch.SummaryOnly {
		return r
	}
	r.res, r.err = c.convertInto(path, to)
	return r
}

// outputTargets assigns every input its own output directory and stem.
// Inputs left in the same directory with the same stem (x.trk and x.ldk)
// get the extension appended, then a counter.
func outputTargets(outDir string, paths []string) []target {
	root := commonDir(paths)
	claimed := make(map[string]bool, len(paths))
	out := make([]target, len(paths))
	for i, p := range paths {
		dir := outDir
		if rel, err := filepath.Rel(root, filepath.Dir(p)); err == nil && within(rel) {
			dir = filepath.Join(outDir, rel)
		}
		stem := inputStem(p)
		if claimed[filepath.Join(dir, stem)] {
			stem += "-" + strings.ToLower(strings.TrimPrefix(filepath.Ext(p), "."))
		}
		for n, base := 2, stem; claimed[filepath.Join(dir, stem)]; n++ {
			stem = fmt.Sprintf("%s-%d", base, n)
		}
		claimed[filepath.Join(dir, stem)] = true
		out[i] = target{dir: dir, stem: stem}
	}
	return out
}

// commonDir returns the deepest directory containing every path.
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	root := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		for {
			rel, err := filepath.Rel(root, filepath.Dir(p))
			if err == nil && within(rel) {
				break
			}
			parent := filepath.Dir(root)
			if parent == root {
				return root
			}
			root = parent
		}
	}
	return root
}

func within(rel string) bool {
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
