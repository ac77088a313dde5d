package band

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is an 8-bit RGBA colour. A zero alpha means the band is not painted.
type Color struct {
	R, G, B, A uint8
}

func (c Color) Transparent() bool { return c.A == 0 }

// Hex formats the colour as #RRGGBB, or "transparent".
func (c Color) Hex() string {
	if c.Transparent() {
		return "transparent"
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ParseColor accepts #RRGGBB, #RRGGBBAA and "transparent".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "transparent") || strings.EqualFold(s, "none") {
		return Color{}, nil
	}
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("colour %q: want #RRGGBB or #RRGGBBAA", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("colour %q: %w", s, err)
	}
	if len(h) == 6 {
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Palette assigns an output colour to each band.
type Palette [numBands]Color

// DefaultPalette remaps the gray inks to the colours shown on the device
// companion app: dark gray to blue and light gray to yellow.
func DefaultPalette() Palette {
	var p Palette
	p[Black] = Color{0x00, 0x00, 0x00, 0xFF}
	p[DarkGray] = Color{0x46, 0x69, 0xD6, 0xFF}
	p[LightGray] = Color{0xFD, 0xFA, 0x75, 0xFF}
	p[White] = Color{0xFE, 0xFE, 0xFE, 0xFF}
	p[Background] = Color{}
	return p
}

// Config is the shared, read-only banding configuration of a run.
type Config struct {
	Ranges  Ranges
	Palette Palette
	table   *Table
}

// NewConfig validates the ranges once so that labelling never fails.
func NewConfig(r Ranges, p Palette) (*Config, error) {
	t, err := r.Table()
	if err != nil {
		return nil, err
	}
	return &Config{Ranges: r, Palette: p, table: t}, nil
}

// DefaultConfig uses DefaultRanges and DefaultPalette.
func DefaultConfig() *Config {
	c, err := NewConfig(DefaultRanges(), DefaultPalette())
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) Table() *Table { return c.table }
