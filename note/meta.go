package note

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var metaPattern = regexp.MustCompile(`<([^:<>]+):([^:<>]*)>`)

// Meta is the multimap stored in every metadata block. A key may appear
// several times; values keep their order of appearance.
type Meta map[string][]string

// ParseMeta extracts all <KEY:VALUE> pairs of a metadata block.
func ParseMeta(b []byte) Meta {
	m := Meta{}
	for _, sub := range metaPattern.FindAllSubmatch(b, -1) {
		key := string(sub[1])
		m[key] = append(m[key], string(sub[2]))
	}
	return m
}

// First returns the first value stored for key.
func (m Meta) First(key string) (string, bool) {
	v, ok := m[key]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// String returns the first value for key or "".
func (m Meta) String(key string) string {
	v, _ := m.First(key)
	return v
}

// Int parses the first value for key. ok is false when the key is absent.
func (m Meta) Int(key string) (n int64, ok bool, err error) {
	v, ok := m.First(key)
	if !ok {
		return 0, false, nil
	}
	n, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// Keys returns the keys in lexical order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Rect is an axis aligned rectangle in page pixels, origin top-left.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// parseRect parses "x,y,w,h".
func parseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("rect %q: want 4 fields, got %d", s, len(parts))
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Rect{}, fmt.Errorf("rect %q: %w", s, err)
		}
		v[i] = n
	}
	return Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}
