package band

import (
	"image"
	"image/color"

	"github.com/wudi/notekit/raster"
)

// Labeled is a bitmap quantized into bands.
type Labeled struct {
	Width, Height int
	Labels        []Band
	Present       Set
}

// Label classifies every pixel of bm.
func Label(bm *raster.Bitmap, cfg *Config) *Labeled {
	t := cfg.Table()
	lb := &Labeled{Width: bm.Width, Height: bm.Height, Labels: make([]Band, len(bm.Pix))}
	var seen [256]bool
	for i, v := range bm.Pix {
		lb.Labels[i] = t[v]
		seen[v] = true
	}
	for v, ok := range seen {
		if ok {
			lb.Present.Add(t[v])
		}
	}
	return lb
}

func (l *Labeled) At(x, y int) Band { return l.Labels[y*l.Width+x] }

// Count returns the number of pixels labelled b.
func (l *Labeled) Count(b Band) int {
	n := 0
	for _, v := range l.Labels {
		if v == b {
			n++
		}
	}
	return n
}

// Reconstruct paints every pixel with the palette colour of its band.
func (l *Labeled) Reconstruct(p Palette) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, l.Width, l.Height))
	for i, b := range l.Labels {
		c := p[b]
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
	}
	return img
}

// NRGBA converts c for use with image/draw.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }
