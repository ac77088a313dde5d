// Package band quantizes intensities into the fixed set of ink classes that
// are both recoloured and vectorized as a unit.
package band

import (
	"errors"
	"fmt"
	"strings"
)

// Band is an intensity class. The set is closed.
type Band uint8

const (
	Background Band = iota
	Black
	DarkGray
	LightGray
	White

	numBands = iota
)

var bandNames = [numBands]string{"background", "black", "darkgray", "lightgray", "white"}

func (b Band) String() string {
	if int(b) < numBands {
		return bandNames[b]
	}
	return fmt.Sprintf("Band(%d)", b)
}

// ParseBand accepts the names printed by String, case-insensitively.
func ParseBand(s string) (Band, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range bandNames {
		if n == s {
			return Band(i), nil
		}
	}
	return 0, fmt.Errorf("unknown band %q", s)
}

// fillOrder paints large background-like areas before strokes.
var fillOrder = []Band{Background, White, LightGray, DarkGray, Black}

// FillOrder returns all bands in painting order.
func FillOrder() []Band {
	return append([]Band(nil), fillOrder...)
}

// Set is a bitset of bands.
type Set uint8

func (s Set) Has(b Band) bool { return s&(1<<b) != 0 }
func (s *Set) Add(b Band)     { *s |= 1 << b }

func (s Set) Len() int {
	n := 0
	for b := Band(0); b < numBands; b++ {
		if s.Has(b) {
			n++
		}
	}
	return n
}

// Bands lists the members in fill order.
func (s Set) Bands() []Band {
	var out []Band
	for _, b := range fillOrder {
		if s.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

// Range is a closed intensity interval.
type Range struct {
	Lo, Hi uint8
}

func (r Range) Contains(v uint8) bool { return v >= r.Lo && v <= r.Hi }

// Ranges assigns an interval to every band.
type Ranges [numBands]Range

var ErrRanges = errors.New("band ranges must partition 0..255")

// DefaultRanges splits the device intensities halfway between the inks,
// ties going to the darker band.
func DefaultRanges() Ranges {
	var r Ranges
	r[Black] = Range{0x00, 0x4E}
	r[DarkGray] = Range{0x4F, 0xB2}
	r[LightGray] = Range{0xB3, 0xE3}
	r[White] = Range{0xE4, 0xFE}
	r[Background] = Range{0xFF, 0xFF}
	return r
}

// Validate checks that the ranges cover every intensity exactly once.
func (r Ranges) Validate() error {
	var owner [256]int
	for i := range owner {
		owner[i] = -1
	}
	for b, rg := range r {
		if rg.Lo > rg.Hi {
			return fmt.Errorf("%w: %s range %#02x..%#02x is inverted", ErrRanges, Band(b), rg.Lo, rg.Hi)
		}
		for v := int(rg.Lo); v <= int(rg.Hi); v++ {
			if owner[v] >= 0 {
				return fmt.Errorf("%w: %#02x claimed by %s and %s", ErrRanges, v, Band(owner[v]), Band(b))
			}
			owner[v] = b
		}
	}
	for v, b := range owner {
		if b < 0 {
			return fmt.Errorf("%w: %#02x not covered", ErrRanges, v)
		}
	}
	return nil
}

// Table is the per-intensity lookup derived from Ranges.
type Table [256]Band

// Table validates r and builds its lookup table.
func (r Ranges) Table() (*Table, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var t Table
	for b, rg := range r {
		for v := int(rg.Lo); v <= int(rg.Hi); v++ {
			t[v] = Band(b)
		}
	}
	return &t, nil
}

// Lookup returns the band of intensity v.
func (t *Table) Lookup(v uint8) Band { return t[v] }
