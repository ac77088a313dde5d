package builder

import (
	"testing"

	"github.com/wudi/notekit/contentstream"
	"github.com/wudi/notekit/ir/semantic"
)

func square() *contentstream.Path {
	return &contentstream.Path{
		Subpaths: []contentstream.Subpath{
			{
				Points: []contentstream.PathPoint{
					{Type: contentstream.PathMoveTo, X: 0, Y: 0},
					{Type: contentstream.PathLineTo, X: 10, Y: 0},
					{Type: contentstream.PathCurveTo, X: 10, Y: 10, Control1X: 12, Control1Y: 3, Control2X: 12, Control2Y: 7},
					{Type: contentstream.PathLineTo, X: 0, Y: 10},
				},
				Closed: true,
			},
		},
	}
}

func operators(ops []semantic.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.Operator
	}
	return out
}

func TestBuilder_DrawPathAlwaysSetsFill(t *testing.T) {
	b := NewBuilder()
	b.NewPage(100, 100).
		DrawPath(square(), PathOptions{FillColor: Color{A: 1}}).
		DrawPath(square(), PathOptions{FillColor: Color{R: 1, G: 1, A: 0.5}, EvenOdd: true}).
		DrawPath(&contentstream.Path{}, PathOptions{}).
		Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	got := operators(doc.Pages[0].Contents[0].Operations)
	want := []string{
		"q", "rg", "m", "l", "c", "l", "h", "f", "Q",
		"q", "gs", "rg", "m", "l", "c", "l", "h", "f*", "Q",
	}
	if len(got) != len(want) {
		t.Fatalf("operators = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operators = %v, want %v", got, want)
		}
	}
	gs := doc.Pages[0].Resources.ExtGStates["GS1"]
	if gs.FillAlpha == nil || *gs.FillAlpha != 0.5 {
		t.Fatalf("expected translucent ExtGState, got %+v", gs)
	}
}

func TestBuilder_DrawInvisibleText(t *testing.T) {
	b := NewBuilder()
	b.NewPage(200, 200).
		DrawText("Intro", 10, 20, TextOptions{FontSize: 16, RenderMode: contentstream.TextInvisible, Width: 50}).
		Finish()
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build doc: %v", err)
	}
	page := doc.Pages[0]
	font := page.Resources.Fonts[defaultFontResource]
	if font == nil || font.Subtype != "Type0" {
		t.Fatalf("default font not placed on page: %+v", page.Resources.Fonts)
	}
	ops := page.Contents[0].Operations
	want := []string{"BT", "Tf", "Tz", "Tr", "Tm", "Tj", "ET"}
	got := operators(ops)
	if len(got) != len(want) {
		t.Fatalf("operators = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operators = %v, want %v", got, want)
		}
	}
	if tr := ops[3].Operands[0].(semantic.NumberOperand); tr.Value != 3 {
		t.Fatalf("render mode = %v", tr.Value)
	}
	tj := ops[5].Operands[0].(semantic.StringOperand)
	if !tj.Hex || len(tj.Value) != 10 {
		t.Fatalf("expected 5 two-byte glyph ids, got % X", tj.Value)
	}
	var text []rune
	for i := 0; i < len(tj.Value); i += 2 {
		gid := int(tj.Value[i])<<8 | int(tj.Value[i+1])
		text = append(text, font.ToUnicode[gid]...)
	}
	if string(text) != "Intro" {
		t.Fatalf("ToUnicode text = %q", string(text))
	}
}

func TestBuilder_LinksAndOutlines(t *testing.T) {
	b := NewBuilder()
	b.NewPage(100, 100).
		AddLink(semantic.Rectangle{URX: 10, URY: 10}, semantic.GoToAction{PageIndex: 1}).
		AddLink(semantic.Rectangle{URX: 10, URY: 10}, nil).
		Finish()
	b.NewPage(100, 100).Finish()
	b.AddOutline(Outline{Title: "Intro", PageIndex: 0, Children: []Outline{{Title: "Part", PageIndex: 1}}})
	doc, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(doc.Pages[0].Annotations) != 1 {
		t.Fatalf("expected one link, got %d", len(doc.Pages[0].Annotations))
	}
	link := doc.Pages[0].Annotations[0].(*semantic.LinkAnnotation)
	if link.Type() != "Link" || link.Action.ActionType() != "GoTo" {
		t.Fatalf("unexpected link %+v", link)
	}
	if doc.PageMode != "UseOutlines" || semantic.Count(doc.Outlines) != 2 || doc.Pages[1].Index != 1 {
		t.Fatalf("outline not converted: %+v", doc.Outlines)
	}

	bad := NewBuilder()
	bad.NewPage(10, 10)
	bad.AddOutline(Outline{Title: "x", PageIndex: 3})
	if _, err := bad.Build(); err == nil {
		t.Fatalf("expected out-of-range outline error")
	}
}

func TestBuilder_UnknownFontFailsBuild(t *testing.T) {
	b := NewBuilder()
	b.NewPage(10, 10).DrawText("x", 0, 0, TextOptions{Font: "Missing"})
	if _, err := b.Build(); err == nil {
		t.Fatalf("expected error for unregistered font")
	}
}
