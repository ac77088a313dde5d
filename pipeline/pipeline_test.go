package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/wudi/notekit/assemble"
	"github.com/wudi/notekit/band"
	"github.com/wudi/notekit/contentstream"
	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/note/notetest"
	"github.com/wudi/notekit/observability"
	"github.com/wudi/notekit/raster"
	"github.com/wudi/notekit/recovery"
	"github.com/wudi/notekit/selection"
	"github.com/wudi/notekit/titles"
	"github.com/wudi/notekit/trace"
)

const w, h = note.PageWidth, note.PageHeight

func blankPage(id string) notetest.Page {
	return notetest.Page{ID: id, Layers: []notetest.Layer{{Key: "MAINLAYER", Data: notetest.Blank(w, h)}}}
}

func TestSingleBlackPage(t *testing.T) {
	data := notetest.File{FileID: "F1", Pages: []notetest.Page{{
		ID:     "P1",
		Layers: []notetest.Layer{{Key: "MAINLAYER", Data: notetest.Solid(notetest.CodeBlack, w, h)}},
	}}}.Bytes()

	rec := &observability.Recorder{}
	c := New(Options{Workers: 2, Tracer: rec})
	res, err := c.ConvertFile(context.Background(), "black.note", data)
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	page := res.Pages[0]
	if page == nil || len(page.Paths) != 1 || page.Paths[0].Band != band.Black {
		t.Fatalf("page = %+v", page)
	}
	b := page.Paths[0].Path.Bounds()
	if math.Abs(b.LLX) > 0.01 || math.Abs(b.LLY) > 0.01 || math.Abs(b.URX-447.292) > 0.01 || math.Abs(b.URY-596.389) > 0.01 {
		t.Fatalf("black fill bounds = %+v", b)
	}

	out, err := c.Render(context.Background(), []*FileResult{res})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out.PDF, []byte("%PDF-1.7")) || !bytes.HasSuffix(bytes.TrimSpace(out.PDF), []byte("%%EOF")) {
		t.Fatalf("not a PDF: %q", out.PDF[:16])
	}
	if len(out.Merged.Pages) != 1 || len(out.Merged.TOC) != 0 {
		t.Fatalf("merged = %+v", out.Merged)
	}
	for _, name := range []string{observability.SpanDecode, observability.SpanPage, observability.SpanAssemble, observability.SpanWrite} {
		if rec.Count(name) != 1 {
			t.Fatalf("span %s finished %d times", name, rec.Count(name))
		}
	}
}

func TestExactTraceOptionsKept(t *testing.T) {
	if got := *New(Options{}).opts.Trace; got != trace.DefaultOptions() {
		t.Fatalf("default trace options = %+v", got)
	}
	c := New(Options{Trace: &trace.Options{}})
	if got := *c.opts.Trace; got.Smooth || got.Tolerance != 0 {
		t.Fatalf("exact options replaced: %+v", got)
	}

	canvas := notetest.NewCanvas(w, h)
	canvas.Fill(100, 200, 400, 260, notetest.CodeBlack)
	data := notetest.File{Pages: []notetest.Page{{ID: "P1", Layers: []notetest.Layer{{Key: "MAINLAYER", Data: canvas.RLE()}}}}}.Bytes()
	res, err := c.ConvertFile(context.Background(), "exact.note", data)
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	sp := res.Pages[0].Paths[0].Path.Subpaths
	if len(sp) != 1 || len(sp[0].Points) != 4 {
		t.Fatalf("exact rectangle = %+v", sp)
	}
	for _, pt := range sp[0].Points {
		if pt.Type == contentstream.PathCurveTo {
			t.Fatalf("exact trace produced a curve: %+v", sp[0].Points)
		}
	}
}

func TestTwoFileIntroToC(t *testing.T) {
	a := notetest.File{FileID: "F-A", Pages: []notetest.Page{blankPage("A1")},
		Links: []notetest.Link{{Page: 1, Rect: [4]int{100, 100, 300, 60}, Type: 1, FileID: "F-B", File: "b.note"}},
	}
	canvas := notetest.NewCanvas(w, h)
	canvas.Fill(100, 200, 400, 260, notetest.CodeBlack)
	b := notetest.File{FileID: "F-B",
		Pages:  []notetest.Page{{ID: "B1", Layers: []notetest.Layer{{Key: "MAINLAYER", Data: canvas.RLE()}}}},
		Titles: []notetest.Title{{Page: 1, Rect: [4]int{90, 190, 320, 80}, Level: 1}},
	}
	sheet, err := titles.ParseManual([]byte("# b.note\n\n- 1.1 Intro\n"))
	if err != nil {
		t.Fatalf("sheet: %v", err)
	}

	c := New(Options{Titles: titles.NewCache(sheet)})
	out, err := c.Convert(context.Background(), []Source{
		{Name: "a.note", Data: a.Bytes()},
		{Name: "b.note", Data: b.Bytes()},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	m := out.Merged
	if len(m.Pages) != 2 {
		t.Fatalf("pages = %d", len(m.Pages))
	}
	if len(m.TOC) != 1 || m.TOC[0].Title != "Intro" || m.TOC[0].Page != 1 || m.TOC[0].Level != 1 {
		t.Fatalf("toc = %+v", m.TOC)
	}
	links := m.Pages[0].Links
	if len(links) != 1 || links[0].Page != 1 {
		t.Fatalf("links = %+v", links)
	}
	if !bytes.Contains(out.PDF, []byte("/Title (Intro)")) {
		t.Fatalf("outline title missing from PDF")
	}
}

func corruptFile() []byte {
	pages := make([]notetest.Page, 5)
	for i := range pages {
		pages[i] = blankPage(string(rune('A' + i)))
	}
	pages[2].Layers[0].Data = []byte{notetest.CodeBlack}
	return notetest.File{FileID: "F-C", Pages: pages}.Bytes()
}

func TestCorruptPagePartialSuccess(t *testing.T) {
	lenient := recovery.NewLenientStrategy()
	c := New(Options{Workers: 3, Strategy: lenient})
	res, err := c.ConvertFile(context.Background(), "c.note", corruptFile())
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if res.Converted() != 4 || res.Pages[2] != nil {
		t.Fatalf("converted = %d, page 3 = %v", res.Converted(), res.Pages[2])
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Page != 2 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	var de *raster.DecodeError
	if !errors.As(res.Skipped[0], &de) || !errors.Is(res.Skipped[0], raster.ErrTruncated) {
		t.Fatalf("skipped error = %v", res.Skipped[0])
	}
	if len(lenient.Errors()) != 1 {
		t.Fatalf("strategy saw %d errors", len(lenient.Errors()))
	}

	out, err := c.Render(context.Background(), []*FileResult{res})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	pm := out.Merged.PageMaps[0]
	if len(out.Merged.Pages) != 4 || pm[2] != -1 || pm[3] != 2 {
		t.Fatalf("page map = %v", pm)
	}
}

func TestUnknownLayerProtocolSkipsOnlyItsPage(t *testing.T) {
	f := notetest.File{FileID: "F"}
	for i := 1; i <= 5; i++ {
		p := blankPage(fmt.Sprintf("P%d", i))
		if i == 3 {
			p.Layers[0].Protocol = "RATTA_XYZ"
		}
		f.Pages = append(f.Pages, p)
	}
	c := New(Options{Workers: 2, Strategy: recovery.NewLenientStrategy()})
	res, err := c.ConvertFile(context.Background(), "p.note", f.Bytes())
	if err != nil {
		t.Fatalf("ConvertFile: %v", err)
	}
	if res.Converted() != 4 || res.Pages[2] != nil {
		t.Fatalf("converted = %d, page 3 = %v", res.Converted(), res.Pages[2])
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("skipped = %+v", res.Skipped)
	}
	pe := res.Skipped[0]
	var fe *note.FormatError
	if pe.Page != 2 || pe.Layer != "MAINLAYER" || !errors.As(pe, &fe) || !errors.Is(pe, note.ErrUnknownEncoding) || fe.Offset <= 0 {
		t.Fatalf("skipped error = %v", pe)
	}

	_, err = New(Options{Workers: 2}).ConvertFile(context.Background(), "p.note", f.Bytes())
	if !errors.Is(err, note.ErrUnknownEncoding) {
		t.Fatalf("strict conversion should fail on page 3, got %v", err)
	}
}

func TestCorruptPageStrict(t *testing.T) {
	c := New(Options{Workers: 3})
	_, err := c.ConvertFile(context.Background(), "c.note", corruptFile())
	var pe *PageError
	if !errors.As(err, &pe) || pe.Page != 2 || pe.File != "c.note" {
		t.Fatalf("error = %v", err)
	}
}

func TestSelectionAndPolicy(t *testing.T) {
	good := notetest.File{FileID: "G", Pages: []notetest.Page{blankPage("P1"), blankPage("P2"), blankPage("P3")}}.Bytes()
	ranges, err := selection.ParseRanges("1,3")
	if err != nil {
		t.Fatal(err)
	}
	junk := bytes.Repeat([]byte("not a note file "), 4)
	c := New(Options{Selector: selection.Selector{Ranges: ranges}, Policy: assemble.ExcludeFailed})
	out, err := c.Convert(context.Background(), []Source{
		{Name: "good.note", Data: good},
		{Name: "junk.note", Data: junk},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(out.Merged.Pages) != 2 || out.Merged.Pages[1].SourceIndex != 2 {
		t.Fatalf("pages = %+v", out.Merged.Pages)
	}
	if len(out.Merged.Excluded) != 1 || !errors.Is(out.Merged.Excluded[0].Err, note.ErrBadMagic) {
		t.Fatalf("excluded = %+v", out.Merged.Excluded)
	}

	strict := New(Options{})
	_, err = strict.Convert(context.Background(), []Source{
		{Name: "good.note", Data: good},
		{Name: "junk.note", Data: junk},
	})
	var ae *assemble.AssemblyError
	if !errors.As(err, &ae) {
		t.Fatalf("abort policy error = %v", err)
	}
}

func TestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := notetest.File{Pages: []notetest.Page{blankPage("P1")}}.Bytes()
	if _, err := New(Options{}).ConvertFile(ctx, "x.note", data); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v", err)
	}
	if _, err := New(Options{}).Convert(ctx, []Source{{Name: "x.note", Data: data}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Convert error = %v", err)
	}
}
