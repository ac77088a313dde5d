// Package assemble merges composed pages of one or more notes into a
// single document with a table of contents and rewritten links.
package assemble

import (
	"errors"
	"strings"

	"github.com/wudi/notekit/compose"
	"github.com/wudi/notekit/coords"
	"github.com/wudi/notekit/note"
)

// Policy says what Merge does with inputs that failed earlier stages.
type Policy int

const (
	// AbortOnFailure fails the whole merge when any input failed.
	AbortOnFailure Policy = iota
	// ExcludeFailed leaves failed inputs out and reports them.
	ExcludeFailed
)

func (p Policy) String() string {
	if p == ExcludeFailed {
		return "exclude-failed"
	}
	return "abort"
}

// Input is one decoded and traced document.
type Input struct {
	Name   string
	FileID string
	// PageIDs lists the PAGEID of every page in file order.
	PageIDs []string
	// Pages is parallel to PageIDs; a nil entry is a page that was
	// deselected or failed and is absent from the output.
	Pages []*compose.Page
	// Err marks the whole input as failed.
	Err error
}

// Options configures Merge.
type Options struct {
	Policy Policy
}

// PageMap maps the original page index of one input to its index in the
// merged document, or -1 when the page is not part of it.
type PageMap []int

// Lookup returns the merged index of original page old.
func (m PageMap) Lookup(old int) (int, bool) {
	if old < 0 || old >= len(m) || m[old] < 0 {
		return 0, false
	}
	return m[old], true
}

// First returns the merged index of the first kept page.
func (m PageMap) First() (int, bool) {
	for _, n := range m {
		if n >= 0 {
			return n, true
		}
	}
	return 0, false
}

// TOCEntry is one table of contents line.
type TOCEntry struct {
	Page  int
	Title string
	Level int
	// Rect is the title region on that page, in points.
	Rect coords.Rect
}

// Link is a resolved link rectangle. Exactly one of Page (>= 0) or URI is
// the destination.
type Link struct {
	Rect coords.Rect
	Page int
	URI  string
}

// Page is one page of the merged document.
type Page struct {
	Source      int
	SourceIndex int
	Page        *compose.Page
	Links       []Link
}

// Excluded records an input left out by ExcludeFailed.
type Excluded struct {
	Name string
	Err  error
}

// Merged is the assembled document before PDF generation.
type Merged struct {
	Pages        []Page
	TOC          []TOCEntry
	PageMaps     []PageMap
	Excluded     []Excluded
	DroppedLinks int
}

// Merge concatenates inputs in the given order. Page order inside an input
// is kept; titles with text become ToC entries in the same order; links
// are rewritten to merged page indices and dropped when their destination
// is not part of the merge.
func Merge(inputs []Input, opts Options) (*Merged, error) {
	if len(inputs) == 0 {
		return nil, &AssemblyError{Err: ErrNoInputs}
	}
	m := &Merged{PageMaps: make([]PageMap, len(inputs))}
	var failures []error
	included := make([]bool, len(inputs))
	for i, in := range inputs {
		if in.Err != nil {
			failures = append(failures, &InputError{Input: in.Name, Err: in.Err})
			m.Excluded = append(m.Excluded, Excluded{Name: in.Name, Err: in.Err})
			continue
		}
		included[i] = true
	}
	switch {
	case len(failures) == len(inputs):
		return nil, &AssemblyError{Err: errors.Join(append([]error{ErrAllFailed}, failures...)...)}
	case len(failures) > 0 && opts.Policy == AbortOnFailure:
		return nil, &AssemblyError{Err: errors.Join(append([]error{ErrFailed}, failures...)...)}
	}

	next := 0
	for i, in := range inputs {
		pm := make(PageMap, len(in.PageIDs))
		for j := range pm {
			pm[j] = -1
			if included[i] && j < len(in.Pages) && in.Pages[j] != nil {
				pm[j] = next
				next++
			}
		}
		m.PageMaps[i] = pm
	}
	if next == 0 {
		return nil, &AssemblyError{Err: ErrNoPages}
	}

	m.Pages = make([]Page, 0, next)
	for i, in := range inputs {
		if !included[i] {
			continue
		}
		for j, cp := range in.Pages {
			if cp == nil || j >= len(in.PageIDs) {
				continue
			}
			idx := m.PageMaps[i][j]
			for _, t := range cp.Titles {
				text := strings.TrimSpace(t.Text)
				if text == "" {
					continue
				}
				level := t.Level
				if level < 1 {
					level = 1
				}
				m.TOC = append(m.TOC, TOCEntry{Page: idx, Title: text, Level: level, Rect: t.Rect})
			}
			page := Page{Source: i, SourceIndex: j, Page: cp}
			for _, l := range cp.Links {
				link, ok := m.resolve(inputs, included, i, l)
				if !ok {
					m.DroppedLinks++
					continue
				}
				page.Links = append(page.Links, link)
			}
			m.Pages = append(m.Pages, page)
		}
	}
	return m, nil
}

func (m *Merged) resolve(inputs []Input, included []bool, src int, l compose.Link) (Link, bool) {
	out := Link{Rect: l.Rect, Page: -1}
	switch t := l.Target.(type) {
	case note.PageTarget:
		idx, ok := m.pageByID(inputs[src], src, t.PageID)
		out.Page = idx
		return out, ok
	case note.FileTarget:
		for i, in := range inputs {
			if !included[i] || t.FileID == "" || in.FileID != t.FileID {
				continue
			}
			if t.PageID == "" {
				idx, ok := m.PageMaps[i].First()
				out.Page = idx
				return out, ok
			}
			idx, ok := m.pageByID(in, i, t.PageID)
			out.Page = idx
			return out, ok
		}
		return out, false
	case note.WebTarget:
		out.URI = strings.TrimSpace(t.URL)
		return out, out.URI != ""
	}
	return out, false
}

func (m *Merged) pageByID(in Input, src int, id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for j, pid := range in.PageIDs {
		if pid == id {
			return m.PageMaps[src].Lookup(j)
		}
	}
	return 0, false
}
