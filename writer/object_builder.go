package writer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wudi/notekit/ir/raw"
	"github.com/wudi/notekit/ir/semantic"
)

type objectBuilder struct {
	doc *semantic.Document
	cfg Config
	out *raw.Document

	fontRefs map[*semantic.Font]raw.ObjectRef
	pageRefs []raw.ObjectRef
	// content collects the decoded content of every page for the file ID.
	content []byte
}

func newObjectBuilder(doc *semantic.Document, cfg Config) *objectBuilder {
	return &objectBuilder{
		doc:      doc,
		cfg:      cfg,
		out:      raw.NewDocument(cfg.version()),
		fontRefs: make(map[*semantic.Font]raw.ObjectRef),
	}
}

// Build lowers the semantic document into indirect objects and fills the
// trailer.
func (b *objectBuilder) Build(ctx context.Context) (*raw.Document, error) {
	if len(b.doc.Pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	catalogRef := b.out.Reserve()
	pagesRef := b.out.Reserve()
	b.pageRefs = make([]raw.ObjectRef, len(b.doc.Pages))
	for i := range b.doc.Pages {
		b.pageRefs[i] = b.out.Reserve()
	}

	for i, p := range b.doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dict, err := b.buildPage(p, pagesRef)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		b.out.Set(b.pageRefs[i], dict)
	}

	kids := raw.NewArray()
	for _, r := range b.pageRefs {
		kids.Append(raw.Ref(r.Num, r.Gen))
	}
	pages := raw.Dict()
	pages.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	pages.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(len(b.pageRefs))))
	pages.Set(raw.NameLiteral("Kids"), kids)
	b.out.Set(pagesRef, pages)

	catalog := raw.Dict()
	catalog.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	catalog.Set(raw.NameLiteral("Pages"), raw.Ref(pagesRef.Num, pagesRef.Gen))
	if len(b.doc.Outlines) > 0 {
		rootRef := b.out.Reserve()
		first, last, count := b.buildOutlines(b.doc.Outlines, rootRef)
		root := raw.Dict()
		root.Set(raw.NameLiteral("Type"), raw.NameLiteral("Outlines"))
		root.Set(raw.NameLiteral("First"), raw.Ref(first.Num, first.Gen))
		root.Set(raw.NameLiteral("Last"), raw.Ref(last.Num, last.Gen))
		root.Set(raw.NameLiteral("Count"), raw.NumberInt(count))
		b.out.Set(rootRef, root)
		catalog.Set(raw.NameLiteral("Outlines"), raw.Ref(rootRef.Num, rootRef.Gen))
	}
	if b.doc.PageMode != "" {
		catalog.Set(raw.NameLiteral("PageMode"), raw.NameLiteral(b.doc.PageMode))
	}
	b.out.Set(catalogRef, catalog)

	infoRef := b.buildInfo()
	ids := fileID(b.doc, b.content, b.cfg)
	b.out.Trailer = trailer(len(b.out.Objects)+1, catalogRef, infoRef, ids)
	return b.out, nil
}

func (b *objectBuilder) buildPage(p *semantic.Page, parent raw.ObjectRef) (*raw.DictObj, error) {
	d := raw.Dict()
	d.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
	d.Set(raw.NameLiteral("Parent"), raw.Ref(parent.Num, parent.Gen))
	d.Set(raw.NameLiteral("MediaBox"), rectArray(p.MediaBox))
	d.Set(raw.NameLiteral("Resources"), b.buildResources(p.Resources))

	var data []byte
	for _, cs := range p.Contents {
		data = append(data, encodeContent(cs)...)
	}
	b.content = append(b.content, data...)
	stream, err := b.stream(raw.Dict(), data)
	if err != nil {
		return nil, err
	}
	contentRef := b.out.Add(stream)
	d.Set(raw.NameLiteral("Contents"), raw.Ref(contentRef.Num, contentRef.Gen))

	if len(p.Annotations) > 0 {
		annots := raw.NewArray()
		for _, a := range p.Annotations {
			ref := b.out.Add(b.buildAnnotation(a))
			annots.Append(raw.Ref(ref.Num, ref.Gen))
		}
		d.Set(raw.NameLiteral("Annots"), annots)
	}
	return d, nil
}

func (b *objectBuilder) buildResources(res *semantic.Resources) *raw.DictObj {
	d := raw.Dict()
	if res == nil {
		return d
	}
	if len(res.Fonts) > 0 {
		fonts := raw.Dict()
		for _, name := range sortedKeys(res.Fonts) {
			ref := b.ensureFont(res.Fonts[name])
			fonts.Set(raw.NameLiteral(name), raw.Ref(ref.Num, ref.Gen))
		}
		d.Set(raw.NameLiteral("Font"), fonts)
	}
	if len(res.ExtGStates) > 0 {
		states := raw.Dict()
		for _, name := range sortedKeys(res.ExtGStates) {
			gs := raw.Dict()
			gs.Set(raw.NameLiteral("Type"), raw.NameLiteral("ExtGState"))
			if a := res.ExtGStates[name].FillAlpha; a != nil {
				gs.Set(raw.NameLiteral("ca"), raw.NumberFloat(*a))
			}
			states.Set(raw.NameLiteral(name), gs)
		}
		d.Set(raw.NameLiteral("ExtGState"), states)
	}
	return d
}

func (b *objectBuilder) buildAnnotation(a semantic.Annotation) *raw.DictObj {
	base := a.Base()
	d := raw.Dict()
	d.Set(raw.NameLiteral("Type"), raw.NameLiteral("Annot"))
	d.Set(raw.NameLiteral("Subtype"), raw.NameLiteral(base.Subtype))
	d.Set(raw.NameLiteral("Rect"), rectArray(base.RectVal))
	if base.Contents != "" {
		d.Set(raw.NameLiteral("Contents"), raw.TextString(base.Contents))
	}
	flags := base.Flags
	if flags == 0 {
		flags = 4 // Print
	}
	d.Set(raw.NameLiteral("F"), raw.NumberInt(int64(flags)))
	if len(base.Border) > 0 {
		border := raw.NewArray()
		for _, v := range base.Border {
			border.Append(raw.NumberFloat(v))
		}
		d.Set(raw.NameLiteral("Border"), border)
	}
	if link, ok := a.(*semantic.LinkAnnotation); ok {
		if act := b.serializeAction(link.Action); act != nil {
			d.Set(raw.NameLiteral("A"), act)
		}
	}
	return d
}

func (b *objectBuilder) buildInfo() *raw.ObjectRef {
	info := b.doc.Info
	if info == nil && b.cfg.Producer == "" {
		return nil
	}
	d := raw.Dict()
	set := func(key, value string) {
		if value != "" {
			d.Set(raw.NameLiteral(key), raw.TextString(value))
		}
	}
	producer := b.cfg.Producer
	if info != nil {
		set("Title", info.Title)
		set("Author", info.Author)
		set("Subject", info.Subject)
		set("Creator", info.Creator)
		if len(info.Keywords) > 0 {
			kw := info.Keywords[0]
			for _, k := range info.Keywords[1:] {
				kw += ", " + k
			}
			set("Keywords", kw)
		}
		if info.Producer != "" {
			producer = info.Producer
		}
	}
	set("Producer", producer)
	if !b.cfg.Deterministic {
		d.Set(raw.NameLiteral("CreationDate"), raw.Str([]byte(time.Now().UTC().Format("D:20060102150405Z"))))
	}
	ref := b.out.Add(d)
	return &ref
}

// stream wraps data as a stream object, compressing it when configured.
func (b *objectBuilder) stream(d *raw.DictObj, data []byte) (*raw.StreamObj, error) {
	if level, ok := b.cfg.flateLevel(); ok && len(data) > 0 {
		enc, err := deflate(data, level)
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		d.Set(raw.NameLiteral("Filter"), raw.NameLiteral("FlateDecode"))
		data = enc
	}
	d.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(data))))
	return raw.NewStream(d, data), nil
}

func (b *objectBuilder) addFontDescriptor(fd *semantic.FontDescriptor) *raw.ObjectRef {
	if fd == nil {
		return nil
	}
	d := raw.Dict()
	d.Set(raw.NameLiteral("Type"), raw.NameLiteral("FontDescriptor"))
	name := fd.FontName
	if name == "" {
		name = "CustomFont"
	}
	d.Set(raw.NameLiteral("FontName"), raw.NameLiteral(name))
	flags := fd.Flags
	if flags == 0 {
		flags = 4
	}
	d.Set(raw.NameLiteral("Flags"), raw.NumberInt(int64(flags)))
	d.Set(raw.NameLiteral("ItalicAngle"), raw.NumberFloat(fd.ItalicAngle))
	d.Set(raw.NameLiteral("Ascent"), raw.NumberFloat(fd.Ascent))
	d.Set(raw.NameLiteral("Descent"), raw.NumberFloat(fd.Descent))
	d.Set(raw.NameLiteral("CapHeight"), raw.NumberFloat(fd.CapHeight))
	stem := fd.StemV
	if stem == 0 {
		stem = 80
	}
	d.Set(raw.NameLiteral("StemV"), raw.NumberInt(int64(stem)))
	d.Set(raw.NameLiteral("FontBBox"), raw.NewArray(
		raw.NumberFloat(fd.FontBBox[0]),
		raw.NumberFloat(fd.FontBBox[1]),
		raw.NumberFloat(fd.FontBBox[2]),
		raw.NumberFloat(fd.FontBBox[3]),
	))
	if len(fd.FontFile) > 0 {
		sd := raw.Dict()
		sd.Set(raw.NameLiteral("Length1"), raw.NumberInt(int64(len(fd.FontFile))))
		// Only an invalid level fails here, and content streams hit it first.
		if s, err := b.stream(sd, fd.FontFile); err == nil {
			ref := b.out.Add(s)
			d.Set(raw.NameLiteral("FontFile2"), raw.Ref(ref.Num, ref.Gen))
		}
	}
	ref := b.out.Add(d)
	return &ref
}

func (b *objectBuilder) addToUnicode(font *semantic.Font) *raw.ObjectRef {
	cmap := toUnicodeCMap(font)
	if len(cmap) == 0 {
		return nil
	}
	s, err := b.stream(raw.Dict(), cmap)
	if err != nil {
		return nil
	}
	ref := b.out.Add(s)
	return &ref
}

// ensureFont writes a Type0 font once per font value, however many pages
// use it.
func (b *objectBuilder) ensureFont(font *semantic.Font) raw.ObjectRef {
	if ref, ok := b.fontRefs[font]; ok {
		return ref
	}
	base := font.BaseFont
	if base == "" {
		base = "CustomTT"
	}
	encoding := font.Encoding
	if encoding == "" {
		encoding = "Identity-H"
	}
	fontDict := raw.Dict()
	fontDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Font"))
	fontDict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral("Type0"))
	fontDict.Set(raw.NameLiteral("BaseFont"), raw.NameLiteral(base))
	fontDict.Set(raw.NameLiteral("Encoding"), raw.NameLiteral(encoding))

	desc := font.DescendantFont
	if desc == nil {
		desc = &semantic.CIDFont{}
	}
	descDict := raw.Dict()
	descDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Font"))
	descSubtype := desc.Subtype
	if descSubtype == "" {
		descSubtype = "CIDFontType2"
	}
	descDict.Set(raw.NameLiteral("Subtype"), raw.NameLiteral(descSubtype))
	descBase := desc.BaseFont
	if descBase == "" {
		descBase = base
	}
	descDict.Set(raw.NameLiteral("BaseFont"), raw.NameLiteral(descBase))
	cs := raw.Dict()
	reg, ord := desc.CIDSystemInfo.Registry, desc.CIDSystemInfo.Ordering
	if reg == "" {
		reg = "Adobe"
	}
	if ord == "" {
		ord = "Identity"
	}
	cs.Set(raw.NameLiteral("Registry"), raw.Str([]byte(reg)))
	cs.Set(raw.NameLiteral("Ordering"), raw.Str([]byte(ord)))
	cs.Set(raw.NameLiteral("Supplement"), raw.NumberInt(int64(desc.CIDSystemInfo.Supplement)))
	descDict.Set(raw.NameLiteral("CIDSystemInfo"), cs)
	dw := desc.DW
	if dw <= 0 {
		dw = 1000
	}
	descDict.Set(raw.NameLiteral("DW"), raw.NumberInt(int64(dw)))
	if w := cidWidths(desc.W, font.ToUnicode); w.Len() > 0 {
		descDict.Set(raw.NameLiteral("W"), w)
	}
	if desc.CIDToGIDMapName != "" {
		descDict.Set(raw.NameLiteral("CIDToGIDMap"), raw.NameLiteral(desc.CIDToGIDMapName))
	}
	if fd := b.addFontDescriptor(desc.Descriptor); fd != nil {
		descDict.Set(raw.NameLiteral("FontDescriptor"), raw.Ref(fd.Num, fd.Gen))
	}
	descRef := b.out.Add(descDict)
	fontDict.Set(raw.NameLiteral("DescendantFonts"), raw.NewArray(raw.Ref(descRef.Num, descRef.Gen)))
	if uref := b.addToUnicode(font); uref != nil {
		fontDict.Set(raw.NameLiteral("ToUnicode"), raw.Ref(uref.Num, uref.Gen))
	}
	ref := b.out.Add(fontDict)
	b.fontRefs[font] = ref
	return ref
}

func (b *objectBuilder) buildOutlines(items []semantic.OutlineItem, parent raw.ObjectRef) (first, last raw.ObjectRef, count int64) {
	if len(items) == 0 {
		return first, last, 0
	}
	refs := make([]raw.ObjectRef, len(items))
	for i := range items {
		refs[i] = b.out.Reserve()
	}
	for i, item := range items {
		count++
		d := raw.Dict()
		d.Set(raw.NameLiteral("Title"), raw.TextString(item.Title))
		if dest := b.destination(item.PageIndex, item.Dest); dest != nil {
			d.Set(raw.NameLiteral("Dest"), dest)
		}
		d.Set(raw.NameLiteral("Parent"), raw.Ref(parent.Num, parent.Gen))
		if i > 0 {
			d.Set(raw.NameLiteral("Prev"), raw.Ref(refs[i-1].Num, refs[i-1].Gen))
		}
		if i < len(refs)-1 {
			d.Set(raw.NameLiteral("Next"), raw.Ref(refs[i+1].Num, refs[i+1].Gen))
		}
		if len(item.Children) > 0 {
			firstChild, lastChild, childCount := b.buildOutlines(item.Children, refs[i])
			d.Set(raw.NameLiteral("First"), raw.Ref(firstChild.Num, firstChild.Gen))
			d.Set(raw.NameLiteral("Last"), raw.Ref(lastChild.Num, lastChild.Gen))
			d.Set(raw.NameLiteral("Count"), raw.NumberInt(childCount))
			count += childCount
		}
		b.out.Set(refs[i], d)
	}
	return refs[0], refs[len(refs)-1], count
}

func (b *objectBuilder) destination(pageIndex int, xyz *semantic.OutlineDestination) raw.Object {
	if pageIndex < 0 || pageIndex >= len(b.pageRefs) {
		return nil
	}
	pref := b.pageRefs[pageIndex]
	if xyz != nil {
		return raw.NewArray(
			raw.Ref(pref.Num, pref.Gen),
			raw.NameLiteral("XYZ"),
			optionalNumber(xyz.X),
			optionalNumber(xyz.Y),
			optionalNumber(xyz.Zoom),
		)
	}
	return raw.NewArray(raw.Ref(pref.Num, pref.Gen), raw.NameLiteral("Fit"))
}

func (b *objectBuilder) serializeAction(a semantic.Action) raw.Object {
	switch act := a.(type) {
	case semantic.URIAction:
		d := raw.Dict()
		d.Set(raw.NameLiteral("S"), raw.NameLiteral("URI"))
		d.Set(raw.NameLiteral("URI"), raw.Str([]byte(act.URI)))
		return d
	case semantic.GoToAction:
		dest := b.destination(act.PageIndex, act.Dest)
		if dest == nil {
			return nil
		}
		d := raw.Dict()
		d.Set(raw.NameLiteral("S"), raw.NameLiteral("GoTo"))
		d.Set(raw.NameLiteral("D"), dest)
		return d
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
