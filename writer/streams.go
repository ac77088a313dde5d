package writer

import (
	"bytes"
	"compress/zlib"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/wudi/notekit/ir/raw"
	"github.com/wudi/notekit/ir/semantic"
)

func (cfg Config) version() string {
	if cfg.Version == "" {
		return string(PDF17)
	}
	return string(cfg.Version)
}

// flateLevel reports the zlib level for streams, or false when streams are
// written uncompressed.
func (cfg Config) flateLevel() (int, bool) {
	if cfg.ContentFilter != FilterFlate && cfg.Compression == 0 {
		return 0, false
	}
	if cfg.Compression == 0 {
		return zlib.DefaultCompression, true
	}
	return cfg.Compression, true
}

// deflate produces zlib framed data as /FlateDecode expects.
func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fileID returns the trailer /ID pair. The first half is a digest of the
// page geometry, title text and drawn content; in deterministic mode the
// second half repeats it, otherwise it is random.
func fileID(doc *semantic.Document, content []byte, cfg Config) [2][]byte {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d", cfg.version(), len(doc.Pages))
	if doc.Info != nil {
		fmt.Fprintf(h, "|%s|%s|%s", doc.Info.Title, doc.Info.Author, doc.Info.Subject)
	}
	for _, p := range doc.Pages {
		fmt.Fprintf(h, "|%.2f %.2f", p.MediaBox.URX-p.MediaBox.LLX, p.MediaBox.URY-p.MediaBox.LLY)
	}
	h.Write(content)
	seed := h.Sum(nil)[:16]
	if cfg.Deterministic {
		return [2][]byte{seed, seed}
	}
	inst := make([]byte, 16)
	if _, err := rand.Read(inst); err != nil {
		return [2][]byte{seed, seed}
	}
	return [2][]byte{seed, inst}
}

func trailer(size int, catalog raw.ObjectRef, info *raw.ObjectRef, ids [2][]byte) *raw.DictObj {
	t := raw.Dict()
	t.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(size)))
	t.Set(raw.NameLiteral("Root"), raw.Ref(catalog.Num, catalog.Gen))
	if info != nil {
		t.Set(raw.NameLiteral("Info"), raw.Ref(info.Num, info.Gen))
	}
	t.Set(raw.NameLiteral("ID"), raw.NewArray(raw.HexStr(ids[0]), raw.HexStr(ids[1])))
	return t
}

func rectArray(r semantic.Rectangle) *raw.ArrayObj {
	return raw.NewArray(raw.NumberFloat(r.LLX), raw.NumberFloat(r.LLY), raw.NumberFloat(r.URX), raw.NumberFloat(r.URY))
}

func optionalNumber(v *float64) raw.Object {
	if v == nil {
		return raw.NullObj{}
	}
	return raw.NumberFloat(*v)
}

const cmapHeader = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
/CIDSystemInfo << /Registry (%s) /Ordering (%s) /Supplement %d >> def
/CMapName /%s def
/CMapType 2 def
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
`

const cmapTrailer = `endcmap
CMapName currentdict /CMap defineresource pop
end
end
`

// bfcharLimit is the largest bfchar block a CMap may hold.
const bfcharLimit = 100

// toUnicodeCMap maps every glyph id in font.ToUnicode back to its text so
// the invisible title layer can be searched and copied.
func toUnicodeCMap(font *semantic.Font) []byte {
	if font == nil || len(font.ToUnicode) == 0 {
		return nil
	}
	gids := make([]int, 0, len(font.ToUnicode))
	for gid := range font.ToUnicode {
		gids = append(gids, gid)
	}
	sort.Ints(gids)

	sys := semantic.CIDSystemInfo{Registry: "Adobe", Ordering: "Identity"}
	if font.DescendantFont != nil {
		sys = font.DescendantFont.CIDSystemInfo
	}
	name := strings.ReplaceAll(font.BaseFont, " ", "")
	if name == "" {
		name = "ToUnicode"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, cmapHeader, sys.Registry, sys.Ordering, sys.Supplement, name+"-UTF16")
	for len(gids) > 0 {
		n := len(gids)
		if n > bfcharLimit {
			n = bfcharLimit
		}
		fmt.Fprintf(&buf, "%d beginbfchar\n", n)
		for _, gid := range gids[:n] {
			fmt.Fprintf(&buf, "<%04X> <", gid)
			for _, u := range utf16.Encode(font.ToUnicode[gid]) {
				fmt.Fprintf(&buf, "%04X", u)
			}
			buf.WriteString(">\n")
		}
		buf.WriteString("endbfchar\n")
		gids = gids[n:]
	}
	buf.WriteString(cmapTrailer)
	return buf.Bytes()
}

// cidWidths writes the /W array for the glyphs actually used, as
// "first last width" runs of consecutive ids sharing a width.
func cidWidths(widths map[int]int, used map[int][]rune) *raw.ArrayObj {
	gids := make([]int, 0, len(used))
	for gid := range used {
		if _, ok := widths[gid]; ok {
			gids = append(gids, gid)
		}
	}
	sort.Ints(gids)
	arr := raw.NewArray()
	for i := 0; i < len(gids); {
		j := i
		for j+1 < len(gids) && gids[j+1] == gids[j]+1 && widths[gids[j+1]] == widths[gids[i]] {
			j++
		}
		arr.Append(raw.NumberInt(int64(gids[i])))
		arr.Append(raw.NumberInt(int64(gids[j])))
		arr.Append(raw.NumberInt(int64(widths[gids[i]])))
		i = j + 1
	}
	return arr
}
