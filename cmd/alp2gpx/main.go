package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"alp2gpx/internal/config"
	"alp2gpx/internal/convert"
)

const usage = `usage: alp2gpx [-config path] <command> [flags] <args>

commands:
  convert [flags] file...   convert .trk/.ldk files
  inspect file...           print a summary of each file
  batch [flags] dir         convert every .trk/.ldk below dir
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("alp2gpx: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("alp2gpx", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	configPath := global.String("config", "", "Path to YAML config (optional)")
	if err := global.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return flag.ErrHelp
	}
	switch rest[0] {
	case "convert":
		return runConvert(&cfg, rest[1:], stdout)
	case "inspect":
		return runInspect(&cfg, rest[1:], stdout)
	case "batch":
		return runBatch(ctx, &cfg, rest[1:], stdout)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}
}

// outputFlags registers the overrides shared by convert and batch. The
// returned func applies only the flags that were set.
func outputFlags(fs *flag.FlagSet, cfg *config.Config) func() error {
	dir := fs.String("o", "", "Output directory (output.dir)")
	formats := fs.String("format", "", "Comma-separated output formats: gpx, geojson (output.formats)")
	ext := fs.Bool("extensions", false, "Write AlpineQuest GPX extensions (output.extensions)")
	contours := fs.Bool("contours", false, "Add accuracy contour tracks (output.contours)")
	pretty := fs.Bool("pretty", false, "Indent output (output.pretty)")
	appendPath := fs.String("append", "", "Merge GeoJSON into this collection file (geojson.append_path)")

	return func() error {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "o":
				cfg.Output.Dir = *dir
			case "format":
				cfg.Output.Formats = strings.Split(*formats, ",")
			case "extensions":
				cfg.Output.Extensions = *ext
			case "contours":
				cfg.Output.Contours = *contours
			case "pretty":
				cfg.Output.Pretty = *pretty
			case "append":
				cfg.GeoJSON.AppendPath = *appendPath
			}
		})
		return cfg.Normalize()
	}
}

func runConvert(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	apply := outputFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := apply(); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("convert: no input files")
	}

	c := convert.New(*cfg)
	var failed int
	for _, path := range fs.Args() {
		res, err := c.ConvertFile(path)
		if err != nil {
			// Unsupported inputs are a notice, not a failure.
			if errors.Is(err, convert.ErrUnsupportedFormat) {
				log.Printf("convert: skipping %s: %v", path, err)
				continue
			}
			log.Printf("convert: %v", err)
			failed++
			continue
		}
		for _, out := range res.Outputs {
			fmt.Fprintf(stdout, "%s -> %s\n", path, out)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, fs.NArg())
	}
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	apply := outputFlags(fs, cfg)
	workers := fs.Int("workers", 0, "Parallel decodes (batch.workers)")
	limit := fs.Int("limit", 0, "Stop after this many files (batch.limit)")
	summary := fs.Bool("summary", false, "Only print file headers (batch.summary_only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Batch.Workers = *workers
		case "limit":
			cfg.Batch.Limit = *limit
		case "summary":
			cfg.Batch.SummaryOnly = *summary
		}
	})
	if err := apply(); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("batch: want exactly one directory")
	}

	paths, err := convert.FindTracks(fs.Arg(0))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Printf("batch: no .trk or .ldk files under %s", fs.Arg(0))
		return nil
	}
	sum, err := convert.New(*cfg).Batch(ctx, paths, stdout)
	fmt.Fprintf(stdout, "files=%d converted=%d failed=%d\n", sum.Files, sum.Converted, sum.Failed)
	return err
}
