package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/wudi/notekit/assemble"
	"github.com/wudi/notekit/config"
	"github.com/wudi/notekit/export"
	"github.com/wudi/notekit/ir/semantic"
	"github.com/wudi/notekit/observability"
	"github.com/wudi/notekit/ocr"
	_ "github.com/wudi/notekit/ocr/tesseract"
	"github.com/wudi/notekit/pipeline"
	"github.com/wudi/notekit/recovery"
	"github.com/wudi/notekit/render"
	"github.com/wudi/notekit/scripting"
	"github.com/wudi/notekit/selection"
	"github.com/wudi/notekit/titles"
	"github.com/wudi/notekit/writer"
)

type options struct {
	inputs        []string
	output        string
	outDir        string
	merge         bool
	configPath    string
	pages         string
	filter        string
	titleSheet    string
	titleCache    string
	ocr           bool
	ocrLang       string
	workers       int
	partial       bool
	excludeFailed bool
	background    bool
	exact         bool
	preview       string
	verbose       bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "notekit: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, opts, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "notekit: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("notekit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: notekit [flags] <file.note>...\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.output, "o", "", "Output PDF (required with -merge; single input only otherwise)")
	fs.StringVar(&opts.outDir, "d", "", "Directory for per-input PDFs (default: next to each input)")
	fs.BoolVar(&opts.merge, "merge", false, "Merge all inputs into one PDF")
	fs.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	fs.StringVar(&opts.pages, "pages", "", `Pages to convert, e.g. "1-3,5,8-"`)
	fs.StringVar(&opts.filter, "filter", "", `JavaScript page filter, e.g. "layers.length > 1"`)
	fs.StringVar(&opts.titleSheet, "titles", "", "Markdown title sheet")
	fs.StringVar(&opts.titleCache, "title-cache", "", "JSON file remembering title transcriptions")
	fs.BoolVar(&opts.ocr, "ocr", false, "Transcribe titles with Tesseract")
	fs.StringVar(&opts.ocrLang, "ocr-lang", "", "Comma separated Tesseract languages (default eng)")
	fs.IntVar(&opts.workers, "workers", 0, "Concurrent page workers (default: number of CPUs)")
	fs.BoolVar(&opts.partial, "partial", false, "Skip failed pages instead of failing the file")
	fs.BoolVar(&opts.excludeFailed, "exclude-failed", false, "Leave failed files out of a merge")
	fs.BoolVar(&opts.background, "background", false, "Include the page template layer")
	fs.BoolVar(&opts.exact, "exact", false, "Emit exact pixel outlines without smoothing")
	fs.StringVar(&opts.preview, "preview", "", "Directory for PNG previews of every output page")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.inputs = fs.Args()
	switch {
	case len(opts.inputs) == 0:
		fs.Usage()
		return options{}, errors.New("missing input file")
	case opts.merge && opts.output == "":
		return options{}, errors.New("-merge needs -o")
	case !opts.merge && opts.output != "" && len(opts.inputs) > 1:
		return options{}, errors.New("-o with several inputs needs -merge; use -d for a directory")
	case opts.workers < 0:
		return options{}, errors.New("-workers must not be negative")
	}
	return opts, nil
}

// settings applies the flags on top of the configuration file.
func settings(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.pages != "" {
		cfg.Pages = opts.pages
	}
	if opts.filter != "" {
		cfg.Filter = opts.filter
	}
	if opts.titleSheet != "" {
		cfg.Titles.Sheet = opts.titleSheet
	}
	if opts.titleCache != "" {
		cfg.Titles.Cache = opts.titleCache
	}
	if opts.ocr {
		cfg.Titles.OCR = true
	}
	if opts.ocrLang != "" {
		cfg.Titles.Languages = strings.Split(opts.ocrLang, ",")
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}
	if opts.partial {
		cfg.Partial = true
	}
	if opts.excludeFailed {
		cfg.Policy = assemble.ExcludeFailed.String()
	}
	if opts.background {
		cfg.IncludeBackground = true
	}
	if opts.exact {
		cfg.Trace.Smooth = false
	}
	return cfg, cfg.Validate()
}

type runner struct {
	opts     options
	cfg      config.Config
	base     pipeline.Options
	logger   observability.Logger
	progress progress
}

func run(ctx context.Context, opts options, stderr io.Writer) error {
	cfg, err := settings(opts)
	if err != nil {
		return err
	}
	level := observability.LevelWarn
	if opts.verbose {
		level = observability.LevelDebug
	}
	logger := observability.NewLogger(stderr, level)

	base, cache, err := pipelineOptions(cfg, logger)
	if err != nil {
		return err
	}
	r := &runner{opts: opts, cfg: cfg, base: base, logger: logger, progress: quietSpinner{}}
	if f, ok := stderr.(*os.File); ok && term.IsTerminal(int(f.Fd())) && !opts.verbose {
		r.progress = newSpinner(stderr, 100*time.Millisecond)
	}
	r.progress.Start()
	defer r.progress.Stop()

	srcs := make([]pipeline.Source, 0, len(opts.inputs))
	for _, path := range opts.inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		srcs = append(srcs, pipeline.Source{Name: path, Data: data})
	}

	if opts.merge {
		err = r.write(ctx, srcs, opts.output)
	} else {
		var errs []error
		for _, src := range srcs {
			if ctx.Err() != nil {
				break
			}
			out := opts.output
			if out == "" {
				out = export.OutputPath(src.Name, opts.outDir)
			}
			if err := r.write(ctx, []pipeline.Source{src}, out); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			}
		}
		err = errors.Join(errs...)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && err == nil {
		err = ctxErr
	}
	if cache != nil && cfg.Titles.Cache != "" {
		if saveErr := export.WriteFile(context.Background(), cfg.Titles.Cache, cache.Save); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("save title cache: %w", saveErr))
		}
	}
	return err
}

// pipelineOptions builds everything that is shared by all outputs.
func pipelineOptions(cfg config.Config, logger observability.Logger) (pipeline.Options, *titles.Cache, error) {
	bands, err := cfg.Bands()
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	policy, err := cfg.MergePolicy()
	if err != nil {
		return pipeline.Options{}, nil, err
	}
	var sel selection.Selector
	if cfg.Pages != "" {
		if sel.Ranges, err = selection.ParseRanges(cfg.Pages); err != nil {
			return pipeline.Options{}, nil, err
		}
	}
	if cfg.Filter != "" {
		if sel.Filter, err = scripting.Compile(cfg.Filter); err != nil {
			return pipeline.Options{}, nil, fmt.Errorf("filter: %w", err)
		}
	}

	var chain titles.Chain
	if cfg.Titles.Sheet != "" {
		src, err := os.ReadFile(cfg.Titles.Sheet)
		if err != nil {
			return pipeline.Options{}, nil, fmt.Errorf("read title sheet: %w", err)
		}
		sheet, err := titles.ParseManual(src)
		if err != nil {
			return pipeline.Options{}, nil, err
		}
		chain = append(chain, sheet)
	}
	if cfg.Titles.OCR {
		chain = append(chain, titles.NewOCRSource(ocr.DefaultEngine(), cfg.Titles.Languages...))
	}
	cache := titles.NewCache(chain)
	if cfg.Titles.Cache != "" {
		f, err := os.Open(cfg.Titles.Cache)
		switch {
		case err == nil:
			loadErr := cache.Load(f)
			f.Close()
			if loadErr != nil {
				return pipeline.Options{}, nil, loadErr
			}
		case !errors.Is(err, os.ErrNotExist):
			return pipeline.Options{}, nil, fmt.Errorf("open title cache: %w", err)
		}
	}

	var strategy recovery.Strategy = recovery.NewStrictStrategy()
	if cfg.Partial {
		strategy = recovery.NewLenientStrategy()
	}

	build := assemble.BuildOptions{
		Info:    semantic.DocumentInfo{Author: cfg.Output.Author, Creator: "notekit"},
		EvenOdd: cfg.Output.EvenOdd,
	}
	if cfg.Output.Font != "" {
		if build.Font, err = os.ReadFile(cfg.Output.Font); err != nil {
			return pipeline.Options{}, nil, fmt.Errorf("read font: %w", err)
		}
	}
	wcfg := writer.DefaultConfig()
	wcfg.Compression = cfg.Output.Compression
	traceOpts := cfg.TraceOptions()

	return pipeline.Options{
		Workers:           cfg.Workers,
		Bands:             bands,
		Trace:             &traceOpts,
		IncludeBackground: cfg.IncludeBackground,
		Strategy:          recovery.WithLogger(strategy, logger),
		Selector:          sel,
		Titles:            cache,
		Policy:            policy,
		Build:             build,
		Writer:            wcfg,
		Logger:            logger,
		Tracer:            &observability.Recorder{Logger: logger},
	}, cache, nil
}

// write converts srcs into one PDF at path.
func (r *runner) write(ctx context.Context, srcs []pipeline.Source, path string) error {
	r.progress.Set("converting " + filepath.Base(path))
	opts := r.base
	opts.Build.Info.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out, err := pipeline.New(opts).Convert(ctx, srcs)
	if err != nil {
		return err
	}
	if err := export.WriteFile(ctx, path, func(w io.Writer) error {
		_, err := w.Write(out.PDF)
		return err
	}); err != nil {
		return err
	}
	skipped := 0
	for _, f := range out.Files {
		skipped += len(f.Skipped)
	}
	r.logger.Info("wrote pdf",
		observability.String("path", path),
		observability.Int("pages", len(out.Merged.Pages)),
		observability.Int("skipped", skipped),
		observability.Int("toc", len(out.Merged.TOC)),
	)
	if r.opts.preview != "" {
		return r.previews(ctx, out, path)
	}
	return nil
}

func (r *runner) previews(ctx context.Context, out *pipeline.Output, path string) error {
	if err := os.MkdirAll(r.opts.preview, 0o755); err != nil {
		return fmt.Errorf("preview dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i, p := range out.Merged.Pages {
		img := render.Page(p.Page, render.DefaultOptions())
		name := filepath.Join(r.opts.preview, fmt.Sprintf("%s-%03d.png", stem, i+1))
		if err := export.WriteFile(ctx, name, func(w io.Writer) error { return render.WritePNG(w, img) }); err != nil {
			return err
		}
	}
	return nil
}
