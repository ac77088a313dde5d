package note

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/notekit/observability"
)

// Option configures Decode.
type Option func(*decoder)

// WithName sets the file identity reported in errors and logs.
func WithName(name string) Option { return func(d *decoder) { d.name = name } }

// WithLimits replaces DefaultLimits.
func WithLimits(l Limits) Option { return func(d *decoder) { d.limits = l } }

// WithLogger receives warnings about skipped optional records.
func WithLogger(l observability.Logger) Option {
	return func(d *decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

type decoder struct {
	data   []byte
	name   string
	limits Limits
	logger observability.Logger
}

// Decode parses a complete container held in memory. The returned Document
// shares no state with other calls; layer Data slices alias data.
func Decode(data []byte, opts ...Option) (*Document, error) {
	d := &decoder{data: data, limits: DefaultLimits(), logger: observability.NopLogger{}}
	for _, opt := range opts {
		opt(d)
	}
	return d.decode()
}

func (d *decoder) fail(off int64, field string, kind error, format string, args ...interface{}) error {
	return &FormatError{File: d.name, Offset: off, Field: field, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (d *decoder) decode() (*Document, error) {
	if int64(len(d.data)) > d.limits.MaxFileSize {
		return nil, d.fail(-1, "", ErrLimit, "file size %d exceeds %d", len(d.data), d.limits.MaxFileSize)
	}
	version, err := d.readVersion()
	if err != nil {
		return nil, err
	}
	if len(d.data) < headerLen+addrSize {
		return nil, d.fail(int64(len(d.data)), "", ErrTruncated, "no footer address")
	}

	footerAddr := int64(binary.LittleEndian.Uint32(d.data[len(d.data)-addrSize:]))
	footer, err := d.metaAt(footerAddr, "footer")
	if err != nil {
		return nil, err
	}

	doc := &Document{Name: d.name, Version: version}
	headerAddr, err := d.address(footer, keyFileFeature, footerAddr, true)
	if err != nil {
		return nil, err
	}
	doc.Header, err = d.metaAt(headerAddr, keyFileFeature)
	if err != nil {
		return nil, err
	}
	doc.FileID = doc.Header.String("FILE_ID")

	var (
		pageAddrs = map[int]int64{}
		titleKeys []string
		linkKeys  []string
	)
	for _, key := range footer.Keys() {
		kind, n := classifyFooterKey(key)
		switch kind {
		case blockPage:
			addr, err := d.address(footer, key, footerAddr, true)
			if err != nil {
				return nil, err
			}
			pageAddrs[n] = addr
		case blockTitle:
			titleKeys = append(titleKeys, key)
		case blockLink:
			linkKeys = append(linkKeys, key)
		case blockHeader:
		default:
			d.logger.Debug("skip footer entry", observability.String("key", key), observability.String("kind", kind.String()))
		}
	}

	if len(pageAddrs) > d.limits.MaxPages {
		return nil, d.fail(footerAddr, "", ErrLimit, "%d pages exceeds %d", len(pageAddrs), d.limits.MaxPages)
	}
	doc.Pages = make([]*Page, len(pageAddrs))
	for i := range doc.Pages {
		addr, ok := pageAddrs[i+1]
		if !ok {
			return nil, d.fail(footerAddr, fmt.Sprintf("PAGE%d", i+1), ErrPageCount, "page index has %d entries but no PAGE%d", len(pageAddrs), i+1)
		}
		doc.Pages[i] = d.parsePage(i, addr)
	}

	if len(titleKeys)+len(linkKeys) > d.limits.MaxRecords {
		return nil, d.fail(footerAddr, "", ErrLimit, "%d title and link records exceeds %d", len(titleKeys)+len(linkKeys), d.limits.MaxRecords)
	}
	for _, key := range titleKeys {
		d.attachTitles(doc, footer, key, footerAddr)
	}
	for _, p := range doc.Pages {
		sort.SliceStable(p.Titles, func(i, j int) bool {
			a, b := p.Titles[i].Rect, p.Titles[j].Rect
			if a.Y != b.Y {
				return a.Y < b.Y
			}
			return a.X < b.X
		})
	}
	for _, key := range linkKeys {
		d.attachLinks(doc, footer, key, footerAddr)
	}
	return doc, nil
}

func (d *decoder) readVersion() (int, error) {
	if len(d.data) < headerLen {
		return 0, d.fail(0, "", ErrTruncated, "file shorter than header (%d bytes)", len(d.data))
	}
	if string(d.data[:len(fileMagic)]) != fileMagic || string(d.data[len(fileMagic):versionStart]) != versionTag {
		return 0, d.fail(0, "", ErrBadMagic, "got %q", d.data[:versionStart])
	}
	digits := string(d.data[versionStart:headerLen])
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, d.fail(versionStart, "version", ErrUnsupportedVersion, "version %q is not numeric", digits)
	}
	if v < MinVersion || v > MaxVersion {
		return 0, d.fail(versionStart, "version", ErrUnsupportedVersion, "version %d outside [%d, %d]", v, MinVersion, MaxVersion)
	}
	return v, nil
}

// blockAt returns the payload of the block starting at addr. Blocks live
// between the file header and the trailing footer address.
func (d *decoder) blockAt(addr int64, field string) ([]byte, error) {
	end := int64(len(d.data) - addrSize)
	if addr < headerLen || addr+addrSize > end {
		return nil, d.fail(addr, field, ErrOutOfBounds, "block address outside [%d, %d)", headerLen, end)
	}
	n := int64(binary.LittleEndian.Uint32(d.data[addr:]))
	if n > d.limits.MaxBlockSize {
		return nil, d.fail(addr, field, ErrLimit, "block of %d bytes exceeds %d", n, d.limits.MaxBlockSize)
	}
	start := addr + addrSize
	if start+n > end {
		return nil, d.fail(addr, field, ErrOutOfBounds, "block of %d bytes runs past %d", n, end)
	}
	return d.data[start : start+n : start+n], nil
}

func (d *decoder) metaAt(addr int64, field string) (Meta, error) {
	b, err := d.blockAt(addr, field)
	if err != nil {
		return nil, err
	}
	return ParseMeta(b), nil
}

// address reads a block address from m. Zero means absent.
func (d *decoder) address(m Meta, key string, at int64, required bool) (int64, error) {
	n, ok, err := m.Int(key)
	if err != nil {
		return 0, d.fail(at, key, ErrMalformed, "%v", err)
	}
	if (!ok || n == 0) && required {
		return 0, d.fail(at, key, ErrMissingField, "no address")
	}
	if n < 0 {
		return 0, d.fail(at, key, ErrOutOfBounds, "negative address %d", n)
	}
	return n, nil
}

func (d *decoder) parsePage(index int, addr int64) *Page {
	field := fmt.Sprintf("PAGE%d", index+1)
	meta, err := d.metaAt(addr, field)
	if err != nil {
		d.logger.Warn("page unreadable", observability.String("page", field), observability.Error("error", err))
		return &Page{Index: index, Offset: addr, Err: err}
	}
	page := &Page{
		Index:  index,
		ID:     meta.String("PAGEID"),
		Style:  meta.String("PAGESTYLE"),
		Offset: addr,
		Meta:   meta,
	}
	for _, name := range layerOrder(meta) {
		layer, ok := d.parseLayer(meta, field, name, addr)
		if !ok {
			continue
		}
		if layer.Err != nil {
			d.logger.Warn("layer unreadable", observability.String("page", field), observability.String("layer", name), observability.Error("error", layer.Err))
		}
		page.Layers = append(page.Layers, layer)
	}
	return page
}

// layerOrder returns the layer keys of a page bottom to top. LAYERSEQ lists
// layers top to bottom; keys it omits are placed below the listed ones in
// default order.
func layerOrder(meta Meta) []string {
	seq, ok := meta.First("LAYERSEQ")
	if !ok || strings.TrimSpace(seq) == "" {
		return layerKeys
	}
	listed := map[string]bool{}
	var top []string
	for _, name := range strings.Split(seq, ",") {
		name = strings.TrimSpace(name)
		if !isLayerKey(name) || listed[name] {
			continue
		}
		listed[name] = true
		top = append(top, name)
	}
	order := make([]string, 0, len(layerKeys))
	for _, name := range layerKeys {
		if !listed[name] {
			order = append(order, name)
		}
	}
	for i := len(top) - 1; i >= 0; i-- {
		order = append(order, top[i])
	}
	return order
}

func isLayerKey(name string) bool {
	for _, k := range layerKeys {
		if k == name {
			return true
		}
	}
	return false
}

// parseLayer returns ok=false for a layer the page does not have or that
// declares no bitmap. A layer whose records cannot be read keeps the fault
// in Err so only its page fails.
func (d *decoder) parseLayer(pageMeta Meta, field, key string, pageAddr int64) (Layer, bool) {
	field += "/" + key
	addr, err := d.address(pageMeta, key, pageAddr, false)
	if err != nil {
		return Layer{Name: key, Err: err}, true
	}
	if addr == 0 {
		return Layer{}, false
	}
	meta, err := d.metaAt(addr, field)
	if err != nil {
		return Layer{Name: key, Err: err}, true
	}
	proto := meta.String("LAYERPROTOCOL")
	enc, ok := ParseLayerEncoding(proto)
	if !ok {
		return Layer{Name: key, Err: d.fail(addr, field+"/LAYERPROTOCOL", ErrUnknownEncoding, "%q", proto)}, true
	}
	bitmapAddr, err := d.address(meta, "LAYERBITMAP", addr, false)
	if err != nil {
		return Layer{Name: key, Encoding: enc, Err: err}, true
	}
	if bitmapAddr == 0 {
		return Layer{}, false
	}
	data, err := d.blockAt(bitmapAddr, field+"/LAYERBITMAP")
	if err != nil {
		return Layer{Name: key, Encoding: enc, Err: err}, true
	}
	return Layer{Name: key, Encoding: enc, Data: data, Offset: bitmapAddr + addrSize}, true
}

func (d *decoder) recordPage(doc *Document, key string, kind blockKind) (*Page, bool) {
	n := keyPageNumber(key)
	if n < 1 || n > len(doc.Pages) {
		d.logger.Warn("skip record for missing page", observability.String("key", key), observability.String("kind", kind.String()))
		return nil, false
	}
	return doc.Pages[n-1], true
}

// attachTitles adds the title records listed under key to their page.
// Titles are optional: an unreadable record is logged and skipped.
func (d *decoder) attachTitles(doc *Document, footer Meta, key string, footerAddr int64) {
	page, ok := d.recordPage(doc, key, blockTitle)
	if !ok {
		return
	}
	for _, v := range footer[key] {
		title, ok, err := d.parseTitle(page, key, v, footerAddr)
		if err != nil {
			d.logger.Warn("skip unreadable title", observability.String("key", key), observability.Error("error", err))
			continue
		}
		if ok {
			page.Titles = append(page.Titles, title)
		}
	}
}

func (d *decoder) parseTitle(page *Page, key, value string, footerAddr int64) (Title, bool, error) {
	addr, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return Title{}, false, d.fail(footerAddr, key, ErrMalformed, "%v", err)
	}
	meta, err := d.metaAt(addr, key)
	if err != nil {
		return Title{}, false, err
	}
	rectStr, ok := meta.First("TITLERECTORI")
	if !ok {
		rectStr, ok = meta.First("TITLERECT")
	}
	if !ok {
		d.logger.Warn("skip title without rectangle", observability.String("key", key))
		return Title{}, false, nil
	}
	rect, err := parseRect(rectStr)
	if err != nil {
		return Title{}, false, d.fail(addr, key+"/TITLERECT", ErrMalformed, "%v", err)
	}
	title := Title{Page: page.Index, Rect: rect, Level: 1, Offset: addr}
	lvl, ok, err := meta.Int("TITLELEVEL")
	if err != nil {
		return Title{}, false, d.fail(addr, key+"/TITLELEVEL", ErrMalformed, "%v", err)
	}
	if ok && lvl > 0 {
		title.Level = int(lvl)
	}
	bitmapAddr, err := d.address(meta, "TITLEBITMAP", addr, false)
	if err != nil {
		return Title{}, false, err
	}
	if bitmapAddr != 0 {
		if title.Bitmap, err = d.blockAt(bitmapAddr, key+"/TITLEBITMAP"); err != nil {
			return Title{}, false, err
		}
	}
	return title, true, nil
}

// attachLinks adds the outgoing link records listed under key to their
// page, skipping unreadable ones like attachTitles.
func (d *decoder) attachLinks(doc *Document, footer Meta, key string, footerAddr int64) {
	page, ok := d.recordPage(doc, key, blockLink)
	if !ok {
		return
	}
	for _, v := range footer[key] {
		link, ok, err := d.parseLink(page, key, v, footerAddr)
		if err != nil {
			d.logger.Warn("skip unreadable link", observability.String("key", key), observability.Error("error", err))
			continue
		}
		if ok {
			page.Links = append(page.Links, link)
		}
	}
}

func (d *decoder) parseLink(page *Page, key, value string, footerAddr int64) (Link, bool, error) {
	addr, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return Link{}, false, d.fail(footerAddr, key, ErrMalformed, "%v", err)
	}
	meta, err := d.metaAt(addr, key)
	if err != nil {
		return Link{}, false, err
	}
	rectStr, ok := meta.First("LINKRECT")
	if !ok {
		d.logger.Warn("skip link without rectangle", observability.String("key", key))
		return Link{}, false, nil
	}
	rect, err := parseRect(rectStr)
	if err != nil {
		return Link{}, false, d.fail(addr, key+"/LINKRECT", ErrMalformed, "%v", err)
	}
	target, ok := linkTarget(meta)
	if !ok {
		d.logger.Warn("skip link with unknown type", observability.String("key", key), observability.String("type", meta.String("LINKTYPE")))
		return Link{}, false, nil
	}
	return Link{Page: page.Index, Rect: rect, Target: target, Offset: addr}, true, nil
}

func linkTarget(meta Meta) (LinkTarget, bool) {
	typ, ok, err := meta.Int("LINKTYPE")
	if !ok || err != nil {
		return nil, false
	}
	pageID := meta.String("PAGEID")
	if pageID == "none" {
		pageID = ""
	}
	switch typ {
	case linkTypePage:
		if pageID == "" {
			return nil, false
		}
		return PageTarget{PageID: pageID}, true
	case linkTypeFile:
		return FileTarget{
			FileID: meta.String("LINKFILEID"),
			PageID: pageID,
			Path:   decodeLinkFile(meta.String("LINKFILE")),
		}, true
	case linkTypeWeb:
		return WebTarget{URL: decodeLinkFile(meta.String("LINKFILE"))}, true
	}
	return nil, false
}

// decodeLinkFile undoes the base64 encoding of LINKFILE. Values that are not
// valid base64 are returned unchanged.
func decodeLinkFile(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return s
	}
	return string(b)
}
