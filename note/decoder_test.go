package note_test

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/note/notetest"
)

func sampleFile() notetest.File {
	return notetest.File{
		FileID: "F20230101",
		Pages: []notetest.Page{
			{ID: "P1", Layers: []notetest.Layer{
				{Key: "MAINLAYER", Data: notetest.Blank(4, 4)},
				{Key: "BGLAYER", Data: notetest.Blank(4, 4)},
			}},
			{ID: "P2", Layers: []notetest.Layer{
				{Key: "MAINLAYER", Data: notetest.Blank(4, 4)},
				{Key: "LAYER1", Protocol: "PNG", Data: []byte{0x89, 'P', 'N', 'G'}},
			}},
		},
		Titles: []notetest.Title{
			{Page: 2, Rect: [4]int{10, 300, 200, 40}, Level: 2},
			{Page: 2, Rect: [4]int{10, 100, 200, 40}, Bitmap: []byte{1, 2, 3}},
			{Page: 1, Rect: [4]int{0, 50, 100, 30}},
		},
		Links: []notetest.Link{
			{Page: 1, Rect: [4]int{1, 2, 3, 4}, Type: 0, PageID: "P2"},
			{Page: 2, Rect: [4]int{5, 6, 7, 8}, Type: 1, FileID: "F2", File: "/Note/Other.note"},
			{Page: 2, Rect: [4]int{9, 9, 9, 9}, Type: 4, File: "https://example.com"},
		},
		Extra: map[string]string{"KEYWORD_00010001": "999999", "STYLE_custom": "12"},
	}
}

func TestDecodeStructure(t *testing.T) {
	doc, err := note.Decode(sampleFile().Bytes(), note.WithName("sample.note"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.FileID != "F20230101" || doc.Version != 20230015 || doc.Name != "sample.note" {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(doc.Pages))
	}

	p1 := doc.Pages[0]
	if p1.ID != "P1" || len(p1.Layers) != 2 {
		t.Fatalf("page 1: %+v", p1)
	}
	if p1.Layers[0].Name != "BGLAYER" || p1.Layers[1].Name != "MAINLAYER" {
		t.Fatalf("default layer order wrong: %s, %s", p1.Layers[0].Name, p1.Layers[1].Name)
	}
	if !p1.Layers[0].Background() || p1.Layers[1].Background() {
		t.Fatalf("background flag wrong")
	}
	if p2 := doc.Pages[1]; p2.Layers[1].Encoding != note.EncodingPNG {
		t.Fatalf("expected PNG layer, got %v", p2.Layers[1].Encoding)
	}

	titles := doc.Pages[1].Titles
	if len(titles) != 2 || titles[0].Rect.Y != 100 || titles[1].Rect.Y != 300 {
		t.Fatalf("titles not sorted by position: %+v", titles)
	}
	if titles[0].Level != 1 || titles[1].Level != 2 {
		t.Fatalf("title levels: %d %d", titles[0].Level, titles[1].Level)
	}
	if !reflect.DeepEqual(titles[0].Bitmap, []byte{1, 2, 3}) {
		t.Fatalf("title bitmap: %v", titles[0].Bitmap)
	}
	if all := doc.Titles(); len(all) != 3 || all[0].Page != 0 {
		t.Fatalf("document titles out of order: %+v", all)
	}

	if got := doc.Pages[0].Links; len(got) != 1 || got[0].Target != (note.PageTarget{PageID: "P2"}) {
		t.Fatalf("page link: %+v", got)
	}
	links := doc.Pages[1].Links
	if len(links) != 2 {
		t.Fatalf("expected 2 links on page 2, got %d", len(links))
	}
	want := []note.LinkTarget{
		note.FileTarget{FileID: "F2", Path: "/Note/Other.note"},
		note.WebTarget{URL: "https://example.com"},
	}
	for i, l := range links {
		if l.Target != want[i] {
			t.Fatalf("link %d target = %#v, want %#v", i, l.Target, want[i])
		}
	}
	if idx, ok := doc.PageIndex("P2"); !ok || idx != 1 {
		t.Fatalf("PageIndex(P2) = %d, %v", idx, ok)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	data := sampleFile().Bytes()
	a, err := note.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, err := note.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two decodes of the same bytes differ")
	}
}

func TestLayerSeqOrder(t *testing.T) {
	f := notetest.File{Pages: []notetest.Page{{
		ID:       "P1",
		LayerSeq: "LAYER1,MAINLAYER,BGLAYER",
		Layers: []notetest.Layer{
			{Key: "MAINLAYER", Data: notetest.Blank(2, 2)},
			{Key: "LAYER1", Data: notetest.Blank(2, 2)},
			{Key: "BGLAYER", Data: notetest.Blank(2, 2)},
		},
	}}}
	doc, err := note.Decode(f.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var names []string
	for _, l := range doc.Pages[0].Layers {
		names = append(names, l.Name)
	}
	if !reflect.DeepEqual(names, []string{"BGLAYER", "MAINLAYER", "LAYER1"}) {
		t.Fatalf("layer order = %v", names)
	}
}

func TestDecodeErrors(t *testing.T) {
	good := sampleFile().Bytes()

	corrupt := func(mutate func([]byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return mutate(b)
	}

	tests := []struct {
		name string
		data []byte
		kind error
	}{
		{"empty", nil, note.ErrTruncated},
		{"magic", corrupt(func(b []byte) []byte { b[0] = 'x'; return b }), note.ErrBadMagic},
		{"old version", corrupt(func(b []byte) []byte { copy(b[16:], "20190101"); return b }), note.ErrUnsupportedVersion},
		{"new version", corrupt(func(b []byte) []byte { copy(b[16:], "20990101"); return b }), note.ErrUnsupportedVersion},
		{"footer past end", corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[len(b)-4:], uint32(len(b)+100))
			return b
		}), note.ErrOutOfBounds},
		{"footer in header", corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[len(b)-4:], 3)
			return b
		}), note.ErrOutOfBounds},
		{"truncated tail", good[:len(good)-40], note.ErrOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := note.Decode(tt.data, note.WithName("bad.note"))
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			var fe *note.FormatError
			if !errors.As(err, &fe) || fe.File != "bad.note" {
				t.Fatalf("expected FormatError with file identity, got %T %v", err, err)
			}
		})
	}
}

func TestUnknownEncodingIsPageScoped(t *testing.T) {
	f := notetest.File{Pages: []notetest.Page{
		{ID: "P1", Layers: []notetest.Layer{{Key: "MAINLAYER", Data: notetest.Blank(2, 2)}}},
		{ID: "P2", Layers: []notetest.Layer{
			{Key: "MAINLAYER", Protocol: "JBIG2", Data: []byte{1}},
			{Key: "LAYER1", Data: notetest.Blank(2, 2)},
		}},
	}}
	doc, err := note.Decode(f.Bytes(), note.WithName("mixed.note"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Pages) != 2 || doc.Pages[0].Layers[0].Err != nil {
		t.Fatalf("first page should decode cleanly: %+v", doc.Pages[0])
	}
	var bad *note.Layer
	for i := range doc.Pages[1].Layers {
		if doc.Pages[1].Layers[i].Name == "MAINLAYER" {
			bad = &doc.Pages[1].Layers[i]
		}
	}
	if bad == nil || !errors.Is(bad.Err, note.ErrUnknownEncoding) || bad.Data != nil {
		t.Fatalf("MAINLAYER of page 2 = %+v", bad)
	}
	var fe *note.FormatError
	if !errors.As(bad.Err, &fe) || fe.File != "mixed.note" || fe.Offset <= 0 {
		t.Fatalf("layer fault lacks position: %v", bad.Err)
	}
}

func TestMalformedRecordsSkipped(t *testing.T) {
	f := notetest.File{
		Pages:  []notetest.Page{{ID: "P1"}},
		Titles: []notetest.Title{{Page: 1, Rect: [4]int{0, 0, 10, 10}}},
		Links:  []notetest.Link{{Page: 1, Rect: [4]int{0, 0, 5, 5}, Type: 4, File: "https://example.com"}},
		Extra: map[string]string{
			"TITLE_000100500009": "99999999",
			"LINKO_000100500009": "abc",
		},
	}
	doc, err := note.Decode(f.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Pages[0].Titles) != 1 || len(doc.Pages[0].Links) != 1 {
		t.Fatalf("titles=%d links=%d, want the well-formed record of each", len(doc.Pages[0].Titles), len(doc.Pages[0].Links))
	}
}

func TestPageGap(t *testing.T) {
	f := notetest.File{
		Pages: []notetest.Page{{ID: "P1"}},
		Extra: map[string]string{"PAGE3": "24"},
	}
	_, err := note.Decode(f.Bytes())
	if !errors.Is(err, note.ErrPageCount) {
		t.Fatalf("expected ErrPageCount, got %v", err)
	}
}

func TestLimits(t *testing.T) {
	limits := note.DefaultLimits()
	limits.MaxPages = 1
	_, err := note.Decode(sampleFile().Bytes(), note.WithLimits(limits))
	if !errors.Is(err, note.ErrLimit) {
		t.Fatalf("expected ErrLimit, got %v", err)
	}
}

func TestTitleOnMissingPageSkipped(t *testing.T) {
	f := notetest.File{
		Pages:  []notetest.Page{{ID: "P1"}},
		Titles: []notetest.Title{{Page: 7, Rect: [4]int{0, 0, 10, 10}}},
	}
	doc, err := note.Decode(f.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Pages[0].Titles) != 0 {
		t.Fatalf("title for missing page attached")
	}
}
