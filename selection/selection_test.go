package selection

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/scripting"
)

func TestParseRanges(t *testing.T) {
	rs, err := ParseRanges(" 1-3, 5 ,8-")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rs.String() != "1-3,5,8-" {
		t.Fatalf("round trip = %q", rs.String())
	}
	for n, want := range map[int]bool{1: true, 3: true, 4: false, 5: true, 7: false, 8: true, 100: true} {
		if rs.Contains(n) != want {
			t.Fatalf("Contains(%d) = %v", n, !want)
		}
	}
	if all, _ := ParseRanges(""); !all.Contains(42) {
		t.Fatalf("empty selection should keep everything")
	}
	if rs, _ := ParseRanges("-2"); !rs.Contains(1) || rs.Contains(3) {
		t.Fatalf("open start range wrong: %v", rs)
	}
	for _, bad := range []string{"0", "3-1", "a", "1,,2", "1-x"} {
		if _, err := ParseRanges(bad); !errors.Is(err, ErrBadRange) {
			t.Fatalf("ParseRanges(%q) err = %v", bad, err)
		}
	}
}

func TestSelectorWithFilter(t *testing.T) {
	doc := &note.Document{Name: "a.note"}
	for i := 0; i < 4; i++ {
		p := &note.Page{Index: i, ID: string(rune('A' + i)), Layers: []note.Layer{{Name: "MAINLAYER"}}}
		if i == 2 {
			p.Titles = []note.Title{{Text: ""}, {Text: "Intro"}}
		}
		doc.Pages = append(doc.Pages, p)
	}
	facts := Facts(doc, 2)
	if facts.Title != "Intro" || len(facts.Titles) != 1 || facts.Number != 3 || facts.Count != 4 {
		t.Fatalf("facts = %+v", facts)
	}

	filter, err := scripting.Compile(`title !== "" || number === 1`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ranges, _ := ParseRanges("2-")
	keep, err := Selector{Ranges: ranges, Filter: filter}.Select(context.Background(), doc)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []bool{false, false, true, false}
	for i := range want {
		if keep[i] != want[i] {
			t.Fatalf("keep = %v, want %v", keep, want)
		}
	}
}
