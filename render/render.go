// Package render draws composed pages into bitmaps for previews.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/wudi/notekit/compose"
	"github.com/wudi/notekit/contentstream"
)

// Options controls preview rendering.
type Options struct {
	// DPI of the output; 72 renders one pixel per point.
	DPI        float64
	Background color.Color
}

func DefaultOptions() Options {
	return Options{DPI: 96, Background: color.White}
}

// Page paints every path of p in order over the background.
func Page(p *compose.Page, opts Options) *image.NRGBA {
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	k := opts.DPI / 72
	w := int(math.Ceil(p.Width * k))
	h := int(math.Ceil(p.Height * k))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if opts.Background != nil {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	}
	for i := range p.Paths {
		path := &p.Paths[i]
		if len(path.Path.Subpaths) == 0 || path.Color.Transparent() {
			continue
		}
		r := vector.NewRasterizer(w, h)
		r.DrawOp = draw.Over
		addPath(r, &path.Path, k, p.Height)
		r.Draw(dst, dst.Bounds(), image.NewUniform(path.Color.NRGBA()), image.Point{})
	}
	return dst
}

// addPath flips PDF user space back to y-down pixels.
func addPath(r *vector.Rasterizer, p *contentstream.Path, k, height float64) {
	pt := func(x, y float64) (float32, float32) {
		return float32(x * k), float32((height - y) * k)
	}
	for _, sp := range p.Subpaths {
		for _, q := range sp.Points {
			switch q.Type {
			case contentstream.PathMoveTo:
				r.MoveTo(pt(q.X, q.Y))
			case contentstream.PathLineTo:
				r.LineTo(pt(q.X, q.Y))
			case contentstream.PathCurveTo:
				x1, y1 := pt(q.Control1X, q.Control1Y)
				x2, y2 := pt(q.Control2X, q.Control2Y)
				x3, y3 := pt(q.X, q.Y)
				r.CubeTo(x1, y1, x2, y2, x3, y3)
			}
		}
		r.ClosePath()
	}
}

// Thumbnail scales img to the given width keeping its aspect ratio.
func Thumbnail(img image.Image, width int) *image.NRGBA {
	b := img.Bounds()
	if width <= 0 || b.Dx() == 0 {
		return image.NewNRGBA(image.Rect(0, 0, 0, 0))
	}
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}
