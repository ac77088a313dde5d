// Package pipeline runs the conversion stages over whole files: container
// decoding once per file, then rasterizing, banding, tracing and composing
// every page on a bounded worker pool, and finally assembling and writing
// the PDF.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/wudi/notekit/assemble"
	"github.com/wudi/notekit/band"
	"github.com/wudi/notekit/compose"
	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/observability"
	"github.com/wudi/notekit/raster"
	"github.com/wudi/notekit/recovery"
	"github.com/wudi/notekit/selection"
	"github.com/wudi/notekit/titles"
	"github.com/wudi/notekit/trace"
	"github.com/wudi/notekit/writer"
)

// Options configures a Converter. The zero value converts with defaults.
type Options struct {
	// Workers bounds concurrent page tasks per file; zero means NumCPU.
	Workers int
	Bands   *band.Config
	// Trace nil selects trace.DefaultOptions. A set value is used as is,
	// so &trace.Options{} traces exact polygons.
	Trace   *trace.Options
	// IncludeBackground draws the template layer.
	IncludeBackground bool
	// Strategy decides about failed pages; nil fails the file.
	Strategy recovery.Strategy
	Selector selection.Selector
	Titles   titles.Source
	Limits   note.Limits
	Policy   assemble.Policy
	Build    assemble.BuildOptions
	Writer   writer.Config
	Logger   observability.Logger
	Tracer   observability.Tracer
}

// Converter turns .note files into PDF documents. It holds no per-file
// state and may be used for several runs.
type Converter struct {
	opts Options
}

// New fills unset options with their defaults.
func New(opts Options) *Converter {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Bands == nil {
		opts.Bands = band.DefaultConfig()
	}
	tr := trace.DefaultOptions()
	if opts.Trace != nil {
		tr = *opts.Trace
	}
	opts.Trace = &tr
	if opts.Strategy == nil {
		opts.Strategy = recovery.NewStrictStrategy()
	}
	if opts.Titles == nil {
		opts.Titles = titles.None
	}
	if opts.Limits == (note.Limits{}) {
		opts.Limits = note.DefaultLimits()
	}
	if opts.Writer.Version == "" {
		opts.Writer = writer.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger{}
	}
	if opts.Tracer == nil {
		opts.Tracer = observability.NopTracer()
	}
	return &Converter{opts: opts}
}

// Source is one input file.
type Source struct {
	Name string
	Data []byte
}

// FileResult is the outcome of one file.
type FileResult struct {
	Name string
	Doc  *note.Document
	// Pages is parallel to Doc.Pages; nil entries were deselected or
	// skipped after an error.
	Pages   []*compose.Page
	Skipped []*PageError
	// Err is set when the whole file failed.
	Err error
}

// Converted reports the number of pages that made it into the output.
func (r *FileResult) Converted() int {
	n := 0
	for _, p := range r.Pages {
		if p != nil {
			n++
		}
	}
	return n
}

// Output is a finished PDF.
type Output struct {
	PDF    []byte
	Merged *assemble.Merged
	Files  []*FileResult
}

type pageResult struct {
	index  int
	page   *compose.Page
	err    *PageError
	action recovery.Action
}

// ConvertFile decodes data and converts the selected pages. Page results
// keep file order regardless of which worker produced them. The returned
// error is a decode error, a page error the strategy refused to skip, or
// the context's error.
func (c *Converter) ConvertFile(ctx context.Context, name string, data []byte) (*FileResult, error) {
	start := time.Now()
	log := c.opts.Logger.With(observability.String("file", name))

	dctx, span := c.opts.Tracer.StartSpan(ctx, observability.SpanDecode)
	doc, err := note.Decode(data, note.WithName(name), note.WithLimits(c.opts.Limits), note.WithLogger(log))
	span.SetError(err)
	span.Finish()
	if err != nil {
		return nil, err
	}
	if err := dctx.Err(); err != nil {
		return nil, err
	}
	keep, err := c.opts.Selector.Select(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: select pages: %w", name, err)
	}
	var jobs []int
	for i, ok := range keep {
		if ok {
			jobs = append(jobs, i)
		}
	}

	res := &FileResult{Name: name, Doc: doc, Pages: make([]*compose.Page, len(doc.Pages))}
	results, err := c.runPages(ctx, name, doc, jobs)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.err == nil {
			res.Pages[r.index] = r.page
			continue
		}
		if r.action == recovery.ActionFail {
			return nil, r.err
		}
		res.Skipped = append(res.Skipped, r.err)
	}
	log.Info("file converted",
		observability.Int("pages", len(doc.Pages)),
		observability.Int("converted", res.Converted()),
		observability.Int("skipped", len(res.Skipped)),
		observability.String("elapsed", time.Since(start).Round(time.Millisecond).String()),
	)
	return res, nil
}

// runPages fans page indices out to the workers. A page the strategy
// refuses to skip stops the remaining tasks.
func (c *Converter) runPages(ctx context.Context, name string, doc *note.Document, jobs []int) ([]pageResult, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	workers := c.opts.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indices := make(chan int, len(jobs))
	out := make(chan pageResult, len(jobs))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if wctx.Err() != nil {
					continue
				}
				page, err := c.convertPage(wctx, name, doc, i)
				r := pageResult{index: i, page: page}
				if err != nil {
					if wctx.Err() != nil {
						continue
					}
					if !errors.As(err, &r.err) {
						r.err = &PageError{File: name, Page: i, Err: err}
					}
					comp, off := component(err)
					r.action = c.opts.Strategy.OnError(wctx, err, recovery.Location{File: name, Page: i, ByteOffset: off, Component: comp})
					if r.action == recovery.ActionFail {
						cancel()
					}
				}
				out <- r
			}
		}()
	}
	for _, i := range jobs {
		indices <- i
	}
	close(indices)
	wg.Wait()
	close(out)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	byIndex := make(map[int]pageResult, len(jobs))
	for r := range out {
		byIndex[r.index] = r
	}
	results := make([]pageResult, 0, len(byIndex))
	for _, i := range jobs {
		if r, ok := byIndex[i]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

func (c *Converter) convertPage(ctx context.Context, name string, doc *note.Document, i int) (*compose.Page, error) {
	ctx, span := c.opts.Tracer.StartSpan(ctx, observability.SpanPage)
	defer span.Finish()
	span.SetTag("page", i+1)

	p := doc.Pages[i]
	if p.Err != nil {
		span.SetError(p.Err)
		return nil, &PageError{File: name, Page: i, Err: p.Err}
	}
	w, h := note.PageWidth, note.PageHeight
	composite := raster.NewBitmap(w, h)
	var layers []compose.LayerPaths
	for _, l := range p.Layers {
		if l.Background() && !c.opts.IncludeBackground {
			continue
		}
		if l.Err != nil {
			span.SetError(l.Err)
			return nil, &PageError{File: name, Page: i, Layer: l.Name, Err: l.Err}
		}
		bm, err := raster.Decode(l, w, h)
		if err != nil {
			span.SetError(err)
			return nil, &PageError{File: name, Page: i, Layer: l.Name, Err: err}
		}
		raster.Composite(composite, bm)
		paths, err := trace.Trace(ctx, band.Label(bm, c.opts.Bands), *c.opts.Trace)
		if err != nil {
			span.SetError(err)
			return nil, &PageError{File: name, Page: i, Layer: l.Name, Err: err}
		}
		layers = append(layers, compose.LayerPaths{Name: l.Name, Paths: paths})
	}
	pageTitles, err := c.transcribe(ctx, name, doc, p, composite)
	if err != nil {
		return nil, &PageError{File: name, Page: i, Err: err}
	}
	return compose.Compose(compose.Input{
		Index:   i,
		PageID:  p.ID,
		Width:   w,
		Height:  h,
		Layers:  layers,
		Titles:  pageTitles,
		Links:   p.Links,
		Palette: c.opts.Bands.Palette,
	}), nil
}

// transcribe fills the text of the page's titles. A source failure only
// leaves that title untitled.
func (c *Converter) transcribe(ctx context.Context, name string, doc *note.Document, p *note.Page, composite *raster.Bitmap) ([]note.Title, error) {
	if len(p.Titles) == 0 {
		return nil, nil
	}
	out := make([]note.Title, len(p.Titles))
	copy(out, p.Titles)
	for j := range out {
		t := &out[j]
		if t.Text != "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		crop := composite.Gray(image.Rect(t.Rect.X, t.Rect.Y, t.Rect.X+t.Rect.W, t.Rect.Y+t.Rect.H))
		r := titles.Region{
			File:        name,
			FileID:      doc.FileID,
			PageIndex:   p.Index,
			PageID:      p.ID,
			Index:       j,
			Level:       t.Level,
			Rect:        t.Rect,
			Image:       crop,
			Fingerprint: titles.Fingerprinter(*t, crop),
		}
		text, ok, err := c.opts.Titles.Transcribe(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.opts.Logger.Warn("title transcription failed",
				observability.String("file", name),
				observability.Int("page", p.Index+1),
				observability.Int("title", j+1),
				observability.Error("error", err),
			)
			continue
		}
		if ok {
			t.Text = text
		}
	}
	return out, nil
}

// Convert converts every source and merges the results into one PDF.
// Failed files become failed assembly inputs, handled by Options.Policy.
func (c *Converter) Convert(ctx context.Context, srcs []Source) (*Output, error) {
	files := make([]*FileResult, 0, len(srcs))
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := c.ConvertFile(ctx, src.Name, src.Data)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.opts.Logger.Error("file failed", observability.String("file", src.Name), observability.Error("error", err))
			res = &FileResult{Name: src.Name, Err: err}
		}
		files = append(files, res)
	}
	return c.Render(ctx, files)
}

// Render assembles converted files and writes the PDF.
func (c *Converter) Render(ctx context.Context, files []*FileResult) (*Output, error) {
	inputs := make([]assemble.Input, len(files))
	for i, f := range files {
		in := assemble.Input{Name: f.Name, Err: f.Err, Pages: f.Pages}
		if f.Doc != nil {
			in.FileID = f.Doc.FileID
			in.PageIDs = make([]string, len(f.Doc.Pages))
			for j, p := range f.Doc.Pages {
				in.PageIDs[j] = p.ID
			}
		}
		inputs[i] = in
	}

	actx, span := c.opts.Tracer.StartSpan(ctx, observability.SpanAssemble)
	m, err := assemble.Merge(inputs, assemble.Options{Policy: c.opts.Policy})
	if err != nil {
		span.SetError(err)
		span.Finish()
		return nil, err
	}
	for _, ex := range m.Excluded {
		c.opts.Logger.Warn("input excluded", observability.String("file", ex.Name), observability.Error("error", ex.Err))
	}
	if m.DroppedLinks > 0 {
		c.opts.Logger.Info("links dropped", observability.Int("count", m.DroppedLinks))
	}
	doc, err := assemble.Build(m, c.opts.Build)
	span.SetError(err)
	span.Finish()
	if err != nil {
		return nil, err
	}

	wctx, wspan := c.opts.Tracer.StartSpan(actx, observability.SpanWrite)
	defer wspan.Finish()
	var buf bytes.Buffer
	if err := (&writer.WriterBuilder{}).Build().Write(wctx, doc, &buf, c.opts.Writer); err != nil {
		wspan.SetError(err)
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &Output{PDF: buf.Bytes(), Merged: m, Files: files}, nil
}
