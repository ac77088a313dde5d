// Package notetest builds synthetic .note containers for tests.
package notetest

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sort"
)

// Version written when File.Version is empty.
const DefaultVersion = "20230015"

// Colour codes of the RATTA_RLE stream.
const (
	CodeBlack      byte = 0x61
	CodeBackground byte = 0x62
	CodeDarkGray   byte = 0x9D
	CodeGray       byte = 0xC9
	CodeWhite      byte = 0x65
)

type Layer struct {
	// Key is the page meta key: MAINLAYER, LAYER1..3 or BGLAYER.
	Key      string
	Protocol string
	Data     []byte
}

type Page struct {
	ID       string
	Style    string
	LayerSeq string
	Layers   []Layer
}

type Title struct {
	Page   int // 1-based
	Rect   [4]int
	Level  int
	Bitmap []byte
}

type Link struct {
	Page   int // 1-based
	Rect   [4]int
	Type   int
	PageID string
	FileID string
	File   string // stored base64 encoded
}

type File struct {
	Version string
	FileID  string
	Pages   []Page
	Titles  []Title
	Links   []Link
	// Extra footer entries, e.g. unknown optional blocks.
	Extra map[string]string
}

type builder struct {
	buf bytes.Buffer
}

func (b *builder) block(payload []byte) int64 {
	addr := int64(b.buf.Len())
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(payload)))
	b.buf.Write(n[:])
	b.buf.Write(payload)
	return addr
}

type kv struct{ k, v string }

func meta(pairs ...kv) []byte {
	var b bytes.Buffer
	for _, p := range pairs {
		fmt.Fprintf(&b, "<%s:%s>", p.k, p.v)
	}
	return b.Bytes()
}

func itoa(n int64) string { return fmt.Sprintf("%d", n) }

func rect(r [4]int) string { return fmt.Sprintf("%d,%d,%d,%d", r[0], r[1], r[2], r[3]) }

// Bytes serializes the container.
func (f File) Bytes() []byte {
	b := &builder{}
	version := f.Version
	if version == "" {
		version = DefaultVersion
	}
	b.buf.WriteString("noteSN_FILE_VER_" + version)

	header := b.block(meta(kv{"MODULE_LABEL", "none"}, kv{"FILE_TYPE", "NOTE"}, kv{"FILE_ID", f.FileID}))

	var footer []kv
	footer = append(footer, kv{"FILE_FEATURE", itoa(header)})
	for i, p := range f.Pages {
		addrs := map[string]int64{}
		for _, l := range p.Layers {
			proto := l.Protocol
			if proto == "" {
				proto = "RATTA_RLE"
			}
			var bitmap int64
			if l.Data != nil {
				bitmap = b.block(l.Data)
			}
			addrs[l.Key] = b.block(meta(
				kv{"LAYERTYPE", "NOTE"},
				kv{"LAYERPROTOCOL", proto},
				kv{"LAYERNAME", l.Key},
				kv{"LAYERBITMAP", itoa(bitmap)},
			))
		}
		style := p.Style
		if style == "" {
			style = "style_white"
		}
		pairs := []kv{{"PAGESTYLE", style}, {"PAGEID", p.ID}}
		if p.LayerSeq != "" {
			pairs = append(pairs, kv{"LAYERSEQ", p.LayerSeq})
		}
		for _, key := range []string{"MAINLAYER", "LAYER1", "LAYER2", "LAYER3", "BGLAYER"} {
			pairs = append(pairs, kv{key, itoa(addrs[key])})
		}
		footer = append(footer, kv{fmt.Sprintf("PAGE%d", i+1), itoa(b.block(meta(pairs...)))})
	}
	for i, t := range f.Titles {
		var bitmap int64
		if t.Bitmap != nil {
			bitmap = b.block(t.Bitmap)
		}
		pairs := []kv{{"TITLERECTORI", rect(t.Rect)}, {"TITLEBITMAP", itoa(bitmap)}}
		if t.Level > 0 {
			pairs = append(pairs, kv{"TITLELEVEL", itoa(int64(t.Level))})
		}
		addr := b.block(meta(pairs...))
		footer = append(footer, kv{fmt.Sprintf("TITLE_%04d%04d%04d", t.Page, t.Rect[1], i), itoa(addr)})
	}
	for i, l := range f.Links {
		pageID := l.PageID
		if pageID == "" {
			pageID = "none"
		}
		addr := b.block(meta(
			kv{"LINKRECT", rect(l.Rect)},
			kv{"LINKTYPE", itoa(int64(l.Type))},
			kv{"LINKFILE", base64.StdEncoding.EncodeToString([]byte(l.File))},
			kv{"LINKFILEID", l.FileID},
			kv{"PAGEID", pageID},
		))
		footer = append(footer, kv{fmt.Sprintf("LINKO_%04d%04d%04d", l.Page, l.Rect[1], i), itoa(addr)})
	}
	extra := make([]string, 0, len(f.Extra))
	for k := range f.Extra {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		footer = append(footer, kv{k, f.Extra[k]})
	}

	footerAddr := b.block(meta(footer...))
	b.buf.WriteString("tail")
	var tail [4]byte
	binary.LittleEndian.PutUint32(tail[:], uint32(footerAddr))
	b.buf.Write(tail[:])
	return b.buf.Bytes()
}

// RLE encodes intensity codes as plain runs of at most 128 pixels.
func RLE(codes []byte) []byte {
	var out []byte
	for i := 0; i < len(codes); {
		j := i + 1
		for j < len(codes) && codes[j] == codes[i] && j-i < 128 {
			j++
		}
		out = append(out, codes[i], byte(j-i-1))
		i = j
	}
	return out
}

// Solid returns a stream of w*h pixels of one code.
func Solid(code byte, w, h int) []byte {
	codes := bytes.Repeat([]byte{code}, w*h)
	return RLE(codes)
}

// Blank returns an all-background layer stream.
func Blank(w, h int) []byte { return Solid(CodeBackground, w, h) }

// Canvas is a mutable grid of colour codes, background by default.
type Canvas struct {
	W, H  int
	Codes []byte
}

func NewCanvas(w, h int) *Canvas {
	return &Canvas{W: w, H: h, Codes: bytes.Repeat([]byte{CodeBackground}, w*h)}
}

// Fill paints the rectangle [x0,x1)x[y0,y1) with code.
func (c *Canvas) Fill(x0, y0, x1, y1 int, code byte) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			c.Codes[y*c.W+x] = code
		}
	}
}

func (c *Canvas) RLE() []byte { return RLE(c.Codes) }
