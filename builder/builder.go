// Package builder assembles semantic pages from paths, text and links.
package builder

import (
	"fmt"
	"math"

	"github.com/wudi/notekit/contentstream"
	"github.com/wudi/notekit/fonts"
	"github.com/wudi/notekit/ir/semantic"
)

// PDFBuilder provides a fluent API for PDF construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	SetInfo(info *semantic.DocumentInfo) PDFBuilder
	AddOutline(out Outline) PDFBuilder
	RegisterFont(name string, font *semantic.Font) PDFBuilder
	RegisterTrueTypeFont(name string, data []byte) PDFBuilder
	Build() (*semantic.Document, error)
}

// PageBuilder provides a fluent API for page construction.
type PageBuilder interface {
	DrawPath(path *contentstream.Path, opts PathOptions) PageBuilder
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	AddLink(rect semantic.Rectangle, action semantic.Action) PageBuilder
	AddAnnotation(ann semantic.Annotation) PageBuilder
	Finish() PDFBuilder
}

// TextOptions configures text drawing.
type TextOptions struct {
	Font       string
	FontSize   float64
	RenderMode contentstream.TextRenderMode
	// Width, when set, stretches or squeezes the run horizontally to span
	// exactly this many points.
	Width float64
}

// PathOptions configures path filling.
type PathOptions struct {
	FillColor Color
	EvenOdd   bool
}

// Color is an RGB fill colour with opacity; A == 1 is opaque.
type Color struct {
	R, G, B float64
	A       float64
}

// Outline defines a bookmark entry for the builder API.
type Outline struct {
	Title     string
	PageIndex int
	X         *float64
	Y         *float64
	Zoom      *float64
	Children  []Outline
}

type builderImpl struct {
	pages       []*semantic.Page
	info        *semantic.DocumentInfo
	outlines    []Outline
	fonts       map[string]*semantic.Font
	defaultFont string
	err         error
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *semantic.Page
	alphas map[float64]string
}

const defaultFontResource = "F1"

// NewBuilder constructs a PDFBuilder.
func NewBuilder() PDFBuilder { return &builderImpl{defaultFont: defaultFontResource} }

func (b *builderImpl) NewPage(w, h float64) PageBuilder {
	p := &semantic.Page{MediaBox: semantic.Rectangle{LLX: 0, LLY: 0, URX: w, URY: h}}
	b.pages = append(b.pages, p)
	return &pageBuilderImpl{parent: b, page: p}
}

func (b *builderImpl) SetInfo(info *semantic.DocumentInfo) PDFBuilder {
	b.info = info
	return b
}

func (b *builderImpl) AddOutline(out Outline) PDFBuilder {
	b.outlines = append(b.outlines, out)
	return b
}

func (b *builderImpl) RegisterFont(name string, font *semantic.Font) PDFBuilder {
	if font == nil {
		return b
	}
	if b.fonts == nil {
		b.fonts = make(map[string]*semantic.Font)
	}
	b.fonts[name] = font
	return b
}

func (b *builderImpl) RegisterTrueTypeFont(name string, data []byte) PDFBuilder {
	font, err := fonts.LoadTrueType(name, data)
	if err != nil {
		b.fail(err)
		return b
	}
	return b.RegisterFont(name, font)
}

func (b *builderImpl) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	if b.err != nil {
		return nil, b.err
	}
	for i, p := range b.pages {
		p.Index = i
	}
	doc := &semantic.Document{Pages: b.pages, Info: b.info}
	if len(b.outlines) > 0 {
		doc.Outlines = make([]semantic.OutlineItem, 0, len(b.outlines))
		for _, out := range b.outlines {
			item, err := b.convertOutline(out)
			if err != nil {
				return nil, err
			}
			doc.Outlines = append(doc.Outlines, item)
		}
		doc.PageMode = "UseOutlines"
	}
	return doc, nil
}

func (p *pageBuilderImpl) DrawPath(path *contentstream.Path, opts PathOptions) PageBuilder {
	if path == nil || len(path.Subpaths) == 0 {
		return p
	}
	p.emit("q")
	if a := opts.FillColor.A; a > 0 && a < 1 {
		p.emit("gs", semantic.NameOperand{Value: p.alphaState(a)})
	}
	c := opts.FillColor
	p.emit("rg", num(c.R), num(c.G), num(c.B))
	p.emitPath(path)
	if opts.EvenOdd {
		p.emit("f*")
	} else {
		p.emit("f")
	}
	p.emit("Q")
	return p
}

// DrawText shapes text with a Type0 font and writes it as a single glyph id
// run. Shaped glyphs are recorded in the font's ToUnicode map so the text
// stays searchable and copyable.
func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	if text == "" {
		return p
	}
	font, fontName, err := p.parent.fontForName(opts.Font)
	if err != nil {
		p.parent.fail(err)
		return p
	}
	glyphs, err := fonts.Shape(text, font)
	if err != nil {
		p.parent.fail(fmt.Errorf("shape %q: %w", text, err))
		return p
	}
	if len(glyphs) == 0 {
		return p
	}
	p.ensureResources().Fonts[fontName] = font
	if font.ToUnicode == nil {
		font.ToUnicode = make(map[int][]rune)
	}
	gids := make([]byte, 0, 2*len(glyphs))
	for _, g := range glyphs {
		if _, seen := font.ToUnicode[g.ID]; !seen && len(g.Runes) > 0 {
			font.ToUnicode[g.ID] = g.Runes
		}
		gids = append(gids, byte(g.ID>>8), byte(g.ID))
	}

	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	p.emit("BT")
	p.emit("Tf", semantic.NameOperand{Value: fontName}, num(size))
	if natural := fonts.Advance(glyphs) / 1000 * size; opts.Width > 0 && natural > 0 {
		p.emit("Tz", num(opts.Width/natural*100))
	}
	if opts.RenderMode != contentstream.TextFill {
		p.emit("Tr", num(float64(opts.RenderMode)))
	}
	p.emit("Tm", num(1), num(0), num(0), num(1), num(x), num(y))
	p.emit("Tj", semantic.StringOperand{Value: gids, Hex: true})
	p.emit("ET")
	return p
}

func (p *pageBuilderImpl) AddLink(rect semantic.Rectangle, action semantic.Action) PageBuilder {
	if action == nil {
		return p
	}
	return p.AddAnnotation(&semantic.LinkAnnotation{
		BaseAnnotation: semantic.BaseAnnotation{Subtype: "Link", RectVal: rect, Border: []float64{0, 0, 0}},
		Action:         action,
	})
}

func (p *pageBuilderImpl) AddAnnotation(ann semantic.Annotation) PageBuilder {
	if ann != nil {
		p.page.Annotations = append(p.page.Annotations, ann)
	}
	return p
}

func (p *pageBuilderImpl) Finish() PDFBuilder { return p.parent }

func (b *builderImpl) fontForName(name string) (*semantic.Font, string, error) {
	if name == "" {
		name = b.defaultFont
	}
	if f, ok := b.fonts[name]; ok {
		return f, name, nil
	}
	if name != defaultFontResource {
		return nil, "", fmt.Errorf("font %q not registered", name)
	}
	font, err := fonts.Default()
	if err != nil {
		return nil, "", fmt.Errorf("load default font: %w", err)
	}
	b.RegisterFont(name, font)
	return font, name, nil
}

func (p *pageBuilderImpl) alphaState(alpha float64) string {
	if p.alphas == nil {
		p.alphas = make(map[float64]string)
	}
	if name, ok := p.alphas[alpha]; ok {
		return name
	}
	name := fmt.Sprintf("GS%d", len(p.alphas)+1)
	p.alphas[alpha] = name
	a := alpha
	p.ensureResources().ExtGStates[name] = semantic.ExtGState{FillAlpha: &a}
	return name
}

func (p *pageBuilderImpl) ensureResources() *semantic.Resources {
	if p.page.Resources == nil {
		p.page.Resources = &semantic.Resources{}
	}
	if p.page.Resources.Fonts == nil {
		p.page.Resources.Fonts = make(map[string]*semantic.Font)
	}
	if p.page.Resources.ExtGStates == nil {
		p.page.Resources.ExtGStates = make(map[string]semantic.ExtGState)
	}
	return p.page.Resources
}

func (b *builderImpl) convertOutline(out Outline) (semantic.OutlineItem, error) {
	if out.PageIndex < 0 || out.PageIndex >= len(b.pages) {
		return semantic.OutlineItem{}, fmt.Errorf("outline %q: page %d out of range [0,%d)", out.Title, out.PageIndex, len(b.pages))
	}
	item := semantic.OutlineItem{Title: out.Title, PageIndex: out.PageIndex}
	if out.X != nil || out.Y != nil || out.Zoom != nil {
		item.Dest = &semantic.OutlineDestination{X: out.X, Y: out.Y, Zoom: out.Zoom}
	}
	if len(out.Children) > 0 {
		item.Children = make([]semantic.OutlineItem, 0, len(out.Children))
		for _, child := range out.Children {
			c, err := b.convertOutline(child)
			if err != nil {
				return semantic.OutlineItem{}, err
			}
			item.Children = append(item.Children, c)
		}
	}
	return item, nil
}

func (p *pageBuilderImpl) emitPath(path *contentstream.Path) {
	for _, sp := range path.Subpaths {
		for _, pt := range sp.Points {
			switch pt.Type {
			case contentstream.PathMoveTo:
				p.emit("m", num(pt.X), num(pt.Y))
			case contentstream.PathLineTo:
				p.emit("l", num(pt.X), num(pt.Y))
			case contentstream.PathCurveTo:
				p.emit("c", num(pt.Control1X), num(pt.Control1Y), num(pt.Control2X), num(pt.Control2Y), num(pt.X), num(pt.Y))
			}
		}
		if sp.Closed {
			p.emit("h")
		}
	}
}

// emit appends one operation to the page's content stream.
func (p *pageBuilderImpl) emit(op string, operands ...semantic.Operand) {
	if len(p.page.Contents) == 0 {
		p.page.Contents = append(p.page.Contents, semantic.ContentStream{})
	}
	cs := &p.page.Contents[0]
	cs.Operations = append(cs.Operations, semantic.Operation{Operator: op, Operands: operands})
}

func num(v float64) semantic.Operand { return semantic.NumberOperand{Value: round(v)} }

// round keeps four decimals, far below a device pixel at 226 ppi.
func round(v float64) float64 {
	r := math.Round(v*1e4) / 1e4
	if r == 0 {
		return 0 // no -0 in content
	}
	return r
}
