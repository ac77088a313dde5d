package assemble

import (
	"github.com/wudi/notekit/band"
	"github.com/wudi/notekit/builder"
	"github.com/wudi/notekit/contentstream"
	"github.com/wudi/notekit/ir/semantic"
)

// BuildOptions controls PDF generation of a merged document.
type BuildOptions struct {
	Info semantic.DocumentInfo
	// Font is a TrueType font for the hidden title text; the built-in
	// font is used when empty.
	Font []byte
	// EvenOdd fills with the even-odd rule instead of nonzero winding.
	EvenOdd bool
}

const titleFont = "F1"

// Build turns m into a semantic document: one page per merged page, band
// paths filled in order, titles as invisible searchable text, links as
// annotations and the ToC as a nested outline.
func Build(m *Merged, opts BuildOptions) (*semantic.Document, error) {
	if m == nil || len(m.Pages) == 0 {
		return nil, &AssemblyError{Err: ErrNoPages}
	}
	b := builder.NewBuilder()
	if len(opts.Font) > 0 {
		b.RegisterTrueTypeFont(titleFont, opts.Font)
	}
	info := opts.Info
	b.SetInfo(&info)

	for _, mp := range m.Pages {
		cp := mp.Page
		pb := b.NewPage(cp.Width, cp.Height)
		for i := range cp.Paths {
			p := &cp.Paths[i]
			pb.DrawPath(&p.Path, builder.PathOptions{FillColor: fillColor(p.Color), EvenOdd: opts.EvenOdd})
		}
		for _, t := range cp.Titles {
			h := t.Rect.Height()
			if t.Text == "" || h <= 0 {
				continue
			}
			pb.DrawText(t.Text, t.Rect.LLX, t.Rect.LLY+0.2*h, builder.TextOptions{
				Font:       titleFont,
				FontSize:   0.6 * h,
				RenderMode: contentstream.TextInvisible,
				Width:      t.Rect.Width(),
			})
		}
		for _, l := range mp.Links {
			rect := semantic.Rectangle{LLX: l.Rect.LLX, LLY: l.Rect.LLY, URX: l.Rect.URX, URY: l.Rect.URY}
			if l.URI != "" {
				pb.AddLink(rect, semantic.URIAction{URI: l.URI})
				continue
			}
			pb.AddLink(rect, semantic.GoToAction{PageIndex: l.Page})
		}
		pb.Finish()
	}
	for _, o := range Outlines(m.TOC) {
		b.AddOutline(o)
	}
	return b.Build()
}

func fillColor(c band.Color) builder.Color {
	return builder.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
		A: float64(c.A) / 255,
	}
}

type outlineNode struct {
	out   builder.Outline
	level int
	kids  []*outlineNode
}

// Outlines nests ToC entries by level: an entry becomes a child of the
// closest preceding entry with a lower level.
func Outlines(toc []TOCEntry) []builder.Outline {
	var roots, stack []*outlineNode
	for _, e := range toc {
		x, y := e.Rect.LLX, e.Rect.URY
		n := &outlineNode{
			out:   builder.Outline{Title: e.Title, PageIndex: e.Page, X: &x, Y: &y},
			level: e.Level,
		}
		for len(stack) > 0 && stack[len(stack)-1].level >= n.level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, n)
		} else {
			top := stack[len(stack)-1]
			top.kids = append(top.kids, n)
		}
		stack = append(stack, n)
	}
	out := make([]builder.Outline, 0, len(roots))
	for _, n := range roots {
		out = append(out, n.flatten())
	}
	return out
}

func (n *outlineNode) flatten() builder.Outline {
	o := n.out
	for _, k := range n.kids {
		o.Children = append(o.Children, k.flatten())
	}
	return o
}
