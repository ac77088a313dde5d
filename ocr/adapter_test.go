package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"
)

func crop(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	for x := 2; x < w-2; x++ {
		img.SetGray(x, h/2, color.Gray{Y: 0})
	}
	return img
}

func TestInputFromImage(t *testing.T) {
	meta := map[string]string{"psm": "6"}
	in, err := InputFromImage("t1", 2, crop(40, 10), 226, DefaultPrepareOptions(),
		WithLanguages("eng", "deu"),
		WithMetadata(meta),
	)
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	if in.Format != ImageFormatPNG || in.PageIndex != 2 || in.ID != "t1" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.DPI != 452 {
		t.Fatalf("dpi = %d, want 452", in.DPI)
	}
	img, err := png.Decode(bytes.NewReader(in.Image))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	// (40 + 2*8) * 2 wide, aspect kept.
	if b := img.Bounds(); b.Dx() != 112 || b.Dy() != 52 {
		t.Fatalf("prepared size = %v", b)
	}
	if !reflect.DeepEqual(in.Languages, []string{"eng", "deu"}) {
		t.Fatalf("unexpected languages: %+v", in.Languages)
	}
	meta["psm"] = "7"
	if in.Metadata["psm"] != "6" {
		t.Fatalf("metadata was not copied: %+v", in.Metadata)
	}
}

func TestInputFromImageRejectsEmpty(t *testing.T) {
	if _, err := InputFromImage("t0", 0, image.NewGray(image.Rect(0, 0, 0, 0)), 226, DefaultPrepareOptions()); err == nil {
		t.Fatalf("expected error for empty crop")
	}
}
