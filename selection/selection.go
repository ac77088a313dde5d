// Package selection decides which pages of a note take part in the output.
package selection

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/scripting"
)

// ErrBadRange is returned for page range syntax errors.
var ErrBadRange = errors.New("selection: bad page range")

// Range is an inclusive span of 1-based page numbers. To == 0 means up to
// the last page.
type Range struct {
	From, To int
}

// Ranges is a union of page spans. The empty set selects every page.
type Ranges []Range

// ParseRanges parses "1-3,5,8-" style lists.
func ParseRanges(s string) (Ranges, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out Ranges
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("%w: empty item in %q", ErrBadRange, s)
		}
		lo, hi, isSpan := strings.Cut(part, "-")
		r := Range{}
		var err error
		if r.From, err = pageNumber(lo, 1); err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadRange, part, err)
		}
		switch {
		case !isSpan:
			r.To = r.From
		default:
			if r.To, err = pageNumber(hi, 0); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrBadRange, part, err)
			}
		}
		if r.To != 0 && r.To < r.From {
			return nil, fmt.Errorf("%w: %q runs backwards", ErrBadRange, part)
		}
		out = append(out, r)
	}
	return out, nil
}

func pageNumber(s string, empty int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return empty, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d is not positive", n)
	}
	return n, nil
}

// Contains reports whether the 1-based page number is selected.
func (rs Ranges) Contains(number int) bool {
	if len(rs) == 0 {
		return true
	}
	for _, r := range rs {
		if number >= r.From && (r.To == 0 || number <= r.To) {
			return true
		}
	}
	return false
}

func (rs Ranges) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		switch {
		case r.To == r.From:
			parts[i] = strconv.Itoa(r.From)
		case r.To == 0:
			parts[i] = strconv.Itoa(r.From) + "-"
		default:
			parts[i] = fmt.Sprintf("%d-%d", r.From, r.To)
		}
	}
	return strings.Join(parts, ",")
}

// Selector combines page ranges with an optional filter expression. A page
// is kept when both agree.
type Selector struct {
	Ranges Ranges
	Filter *scripting.Predicate
}

// Select returns one flag per page of doc.
func (s Selector) Select(ctx context.Context, doc *note.Document) ([]bool, error) {
	keep := make([]bool, len(doc.Pages))
	for i := range doc.Pages {
		if !s.Ranges.Contains(i + 1) {
			continue
		}
		if s.Filter == nil {
			keep[i] = true
			continue
		}
		ok, err := s.Filter.Eval(ctx, Facts(doc, i))
		if err != nil {
			return nil, err
		}
		keep[i] = ok
	}
	return keep, nil
}

// Facts describes page i of doc for filter expressions. Title is the text
// of the first titled region.
func Facts(doc *note.Document, i int) scripting.Page {
	p := doc.Pages[i]
	facts := scripting.Page{
		File:   doc.Name,
		Index:  i,
		Number: i + 1,
		Count:  len(doc.Pages),
		ID:     p.ID,
		Titles: []string{},
		Layers: make([]string, 0, len(p.Layers)),
		Links:  len(p.Links),
	}
	for _, t := range p.Titles {
		if t.Text == "" {
			continue
		}
		if facts.Title == "" {
			facts.Title = t.Text
		}
		facts.Titles = append(facts.Titles, t.Text)
	}
	for _, l := range p.Layers {
		facts.Layers = append(facts.Layers, l.Name)
	}
	return facts
}
