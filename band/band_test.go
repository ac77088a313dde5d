package band

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/wudi/notekit/raster"
)

func TestDefaultCutoffs(t *testing.T) {
	table, err := DefaultRanges().Table()
	if err != nil {
		t.Fatalf("default ranges invalid: %v", err)
	}
	tests := []struct {
		v    uint8
		want Band
	}{
		{raster.Black, Black},
		{0x4E, Black},
		{0x4F, DarkGray},
		{raster.DarkGray, DarkGray},
		{0xB2, DarkGray},
		{0xB3, LightGray},
		{raster.Gray, LightGray},
		{0xE3, LightGray},
		{0xE4, White},
		{raster.White, White},
		{raster.Blank, Background},
	}
	for _, tt := range tests {
		if got := table.Lookup(tt.v); got != tt.want {
			t.Fatalf("Lookup(%#02x) = %s, want %s", tt.v, got, tt.want)
		}
	}
}

func TestRangesValidate(t *testing.T) {
	gap := DefaultRanges()
	gap[White] = Range{0xE5, 0xFE}
	overlap := DefaultRanges()
	overlap[DarkGray] = Range{0x40, 0xB2}
	inverted := DefaultRanges()
	inverted[Background] = Range{0xFF, 0x00}

	for name, r := range map[string]Ranges{"gap": gap, "overlap": overlap, "inverted": inverted} {
		if err := r.Validate(); !errors.Is(err, ErrRanges) {
			t.Fatalf("%s: expected ErrRanges, got %v", name, err)
		}
	}
}

// Every pixel lands in exactly one band and the palette reconstruction can
// be mapped back to the same labelling.
func TestLabelRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	palette := Palette{
		Background: {1, 1, 1, 0},
		Black:      {2, 2, 2, 0xFF},
		DarkGray:   {3, 3, 3, 0xFF},
		LightGray:  {4, 4, 4, 0xFF},
		White:      {5, 5, 5, 0xFF},
	}
	cfg, err := NewConfig(DefaultRanges(), palette)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	inverse := map[Color]Band{}
	for b, c := range palette {
		inverse[c] = Band(b)
	}

	for round := 0; round < 20; round++ {
		w, h := 1+rng.Intn(40), 1+rng.Intn(40)
		bm := &raster.Bitmap{Width: w, Height: h, Pix: make([]uint8, w*h)}
		for i := range bm.Pix {
			bm.Pix[i] = uint8(rng.Intn(256))
		}
		lb := Label(bm, cfg)

		var present Set
		for i, v := range bm.Pix {
			owners := 0
			for b, rg := range cfg.Ranges {
				if rg.Contains(v) {
					owners++
					if lb.Labels[i] != Band(b) {
						t.Fatalf("pixel %d (%#02x) labelled %s, range says %s", i, v, lb.Labels[i], Band(b))
					}
				}
			}
			if owners != 1 {
				t.Fatalf("intensity %#02x owned by %d bands", v, owners)
			}
			present.Add(lb.Labels[i])
		}
		if present != lb.Present {
			t.Fatalf("present set %v, want %v", lb.Present.Bands(), present.Bands())
		}

		img := lb.Reconstruct(palette)
		for i, want := range lb.Labels {
			p := img.Pix[i*4 : i*4+4]
			got, ok := inverse[Color{p[0], p[1], p[2], p[3]}]
			if !ok || got != want {
				t.Fatalf("pixel %d reconstructed as %v, want %s", i, p, want)
			}
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#4669D6", Color{0x46, 0x69, 0xD6, 0xFF}},
		{"fdfa75", Color{0xFD, 0xFA, 0x75, 0xFF}},
		{"#00000080", Color{0, 0, 0, 0x80}},
		{"transparent", Color{}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil || got != tt.want {
			t.Fatalf("ParseColor(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Fatalf("expected error for short colour")
	}
	if DefaultPalette()[DarkGray].Hex() != "#4669D6" {
		t.Fatalf("dark gray should remap to blue")
	}
}

func TestFillOrder(t *testing.T) {
	var s Set
	s.Add(Black)
	s.Add(LightGray)
	s.Add(Background)
	got := s.Bands()
	want := []Band{Background, LightGray, Black}
	if len(got) != len(want) || s.Len() != 3 {
		t.Fatalf("bands = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bands = %v, want %v", got, want)
		}
	}
}
