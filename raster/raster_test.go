package raster_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/note/notetest"
	"github.com/wudi/notekit/raster"
)

func TestDecodeRLE(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		w, h int
		want func(i int) uint8
	}{
		{
			name: "plain runs",
			data: []byte{0x61, 0x01, 0x62, 0x01},
			w:    2, h: 2,
			want: func(i int) uint8 {
				if i < 2 {
					return raster.Black
				}
				return raster.Blank
			},
		},
		{
			name: "held pair combines with same code",
			data: []byte{0x9E, 0x80, 0x9E, 0x05},
			w:    134, h: 1,
			want: func(int) uint8 { return raster.DarkGray },
		},
		{
			name: "held pair flushes before other code",
			data: []byte{0x61, 0x80, 0x65, 0x00},
			w:    129, h: 1,
			want: func(i int) uint8 {
				if i < 128 {
					return raster.Black
				}
				return raster.White
			},
		},
		{
			name: "special length",
			data: []byte{0xCA, 0xFF},
			w:    128, h: 128,
			want: func(int) uint8 { return raster.Gray },
		},
		{
			name: "trailing held pair shrinks to gap",
			data: []byte{0x61, 0x81},
			w:    8, h: 8,
			want: func(int) uint8 { return raster.Black },
		},
		{
			name: "final background run is clamped",
			data: []byte{0x66, 0x00, 0x62, 0x10},
			w:    2, h: 2,
			want: func(i int) uint8 {
				if i == 0 {
					return raster.Black
				}
				return raster.Blank
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm, err := raster.DecodeRLE(tt.data, tt.w, tt.h, "MAINLAYER", 0)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			for i, v := range bm.Pix {
				if v != tt.want(i) {
					t.Fatalf("pixel %d = 0x%02x, want 0x%02x", i, v, tt.want(i))
				}
			}
		})
	}
}

func TestDecodeRLEErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		kind   error
		offset int64
	}{
		{"odd length", []byte{0x61, 0x00, 0x61}, raster.ErrTruncated, 102},
		{"unknown colour", []byte{0x61, 0x00, 0x42, 0x00}, raster.ErrUnknownColor, 102},
		{"overflow", []byte{0x61, 0x10}, raster.ErrOverflow, 100},
		{"underflow", []byte{0x61, 0x00}, raster.ErrUnderflow, 102},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := raster.DecodeRLE(tt.data, 2, 2, "LAYER1", 100)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			var de *raster.DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected DecodeError, got %T", err)
			}
			if de.Offset != tt.offset || de.Layer != "LAYER1" {
				t.Fatalf("error context = %+v", de)
			}
		})
	}
}

func TestDecodeLayerDispatch(t *testing.T) {
	l := note.Layer{Name: "MAINLAYER", Encoding: note.EncodingRattaRLE, Data: notetest.Solid(notetest.CodeBlack, 3, 3)}
	bm, err := raster.Decode(l, 3, 3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, v := range bm.Pix {
		if v != raster.Black {
			t.Fatalf("expected black pixels, got 0x%02x", v)
		}
	}

	if _, err := raster.Decode(note.Layer{Name: "X"}, 3, 3); !errors.Is(err, raster.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.Set(0, 0, color.NRGBA{})
	img.Set(1, 0, color.NRGBA{A: 0xFF})
	img.Set(2, 0, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	data := encodePNG(t, img)

	bm, err := raster.DecodePNG(data, 3, 1, "BGLAYER", 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []uint8{raster.Blank, raster.Black, raster.White}
	if !bytes.Equal(bm.Pix, want) {
		t.Fatalf("pixels = %v, want %v", bm.Pix, want)
	}

	if _, err := raster.DecodePNG(data, 4, 1, "BGLAYER", 0); !errors.Is(err, raster.ErrSize) {
		t.Fatalf("expected ErrSize, got %v", err)
	}
	if _, err := raster.DecodePNG([]byte("nope"), 3, 1, "BGLAYER", 0); !errors.Is(err, raster.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestComposite(t *testing.T) {
	dst := raster.NewBitmap(2, 1)
	bottom := &raster.Bitmap{Width: 2, Height: 1, Pix: []uint8{raster.Gray, raster.Gray}}
	top := &raster.Bitmap{Width: 2, Height: 1, Pix: []uint8{raster.Blank, raster.Black}}
	raster.Composite(dst, bottom, top)
	if !bytes.Equal(dst.Pix, []uint8{raster.Gray, raster.Black}) {
		t.Fatalf("composite = %v", dst.Pix)
	}

	crop := dst.Gray(image.Rect(1, 0, 5, 1))
	if crop.Bounds().Dx() != 1 || crop.Pix[0] != raster.Black {
		t.Fatalf("crop = %v %v", crop.Bounds(), crop.Pix)
	}
}
