package titles

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

type manualKey struct {
	file        string
	page, index int
}

// ManualSource answers from a hand-written Markdown title sheet:
//
//	# meeting.note
//
//	- 1.1 Intro
//	- 3.2: Results
//
// A heading names the file (base name or FILE_ID) that the following list
// items apply to; items before any heading, or under "# *", apply to every
// file. Each item is "<page>.<n> <text>" with page and n counted from one,
// n being the title's position on the page.
type ManualSource struct {
	entries map[manualKey]string
}

// ParseManual reads a title sheet.
func ParseManual(src []byte) (*ManualSource, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))
	m := &ManualSource{entries: make(map[manualKey]string)}
	file := ""
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Heading:
			file = strings.TrimSpace(string(n.Text(src)))
			if file == "*" {
				file = ""
			}
		case *ast.List:
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				line := strings.TrimSpace(string(item.Text(src)))
				if line == "" {
					continue
				}
				page, index, title, err := parseManualItem(line)
				if err != nil {
					return nil, err
				}
				m.entries[manualKey{file: file, page: page, index: index}] = title
			}
		}
	}
	return m, nil
}

func parseManualItem(line string) (page, index int, title string, err error) {
	ref, rest, ok := strings.Cut(line, " ")
	ref = strings.TrimSuffix(ref, ":")
	p, n, dotted := strings.Cut(ref, ".")
	if !ok || !dotted {
		return 0, 0, "", fmt.Errorf("title sheet: %q: want \"<page>.<n> <text>\"", line)
	}
	if page, err = strconv.Atoi(p); err != nil || page < 1 {
		return 0, 0, "", fmt.Errorf("title sheet: %q: bad page", line)
	}
	if index, err = strconv.Atoi(n); err != nil || index < 1 {
		return 0, 0, "", fmt.Errorf("title sheet: %q: bad title number", line)
	}
	return page, index, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), ":")), nil
}

// Len returns the number of titles in the sheet.
func (m *ManualSource) Len() int { return len(m.entries) }

func (m *ManualSource) Transcribe(_ context.Context, r Region) (string, bool, error) {
	base := ""
	if r.File != "" {
		base = filepath.Base(r.File)
	}
	for _, file := range []string{base, r.FileID, ""} {
		if t, ok := m.entries[manualKey{file: file, page: r.PageIndex + 1, index: r.Index + 1}]; ok {
			return t, true, nil
		}
	}
	return "", false, nil
}
