// Package raster expands layer streams into dense intensity bitmaps.
package raster

import (
	"image"
	"image/color"
)

// Intensities written by the decoders. Blank marks a pixel without ink so
// that lower layers show through when compositing.
const (
	Black    uint8 = 0x00
	DarkGray uint8 = 0x9D
	Gray     uint8 = 0xC9
	White    uint8 = 0xFE
	Blank    uint8 = 0xFF
)

// Bitmap is a row-major grid of intensities.
type Bitmap struct {
	Width, Height int
	Pix           []uint8
}

// NewBitmap returns a blank bitmap.
func NewBitmap(w, h int) *Bitmap {
	b := &Bitmap{Width: w, Height: h, Pix: make([]uint8, w*h)}
	fill(b.Pix, Blank)
	return b
}

func (b *Bitmap) At(x, y int) uint8 { return b.Pix[y*b.Width+x] }

func (b *Bitmap) Set(x, y int, v uint8) { b.Pix[y*b.Width+x] = v }

// Composite draws layers over dst in order; Blank pixels are skipped.
// Layers of a different size are ignored.
func Composite(dst *Bitmap, layers ...*Bitmap) {
	for _, l := range layers {
		if l == nil || l.Width != dst.Width || l.Height != dst.Height {
			continue
		}
		for i, v := range l.Pix {
			if v != Blank {
				dst.Pix[i] = v
			}
		}
	}
}

// Gray copies the rectangle r (clipped to the bitmap) into a gray image with
// blank pixels rendered white.
func (b *Bitmap) Gray(r image.Rectangle) *image.Gray {
	r = r.Intersect(image.Rect(0, 0, b.Width, b.Height))
	img := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := b.Pix[y*b.Width+r.Min.X : y*b.Width+r.Max.X]
		copy(img.Pix[(y-r.Min.Y)*img.Stride:], row)
	}
	return img
}

// FromImage converts an image to intensities. Pixels with alpha below one
// half become Blank; opaque white maps to White so it stays distinct from
// the absence of ink.
func FromImage(img image.Image) *Bitmap {
	bounds := img.Bounds()
	b := &Bitmap{Width: bounds.Dx(), Height: bounds.Dy(), Pix: make([]uint8, bounds.Dx()*bounds.Dy())}
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A < 0x80 {
				b.Pix[i] = Blank
			} else {
				v := color.GrayModel.Convert(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}).(color.Gray).Y
				if v == Blank {
					v = White
				}
				b.Pix[i] = v
			}
			i++
		}
	}
	return b
}

func fill(dst []uint8, v uint8) {
	for i := range dst {
		dst[i] = v
	}
}
