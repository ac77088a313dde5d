package trace

import (
	"image"
	"image/draw"

	"golang.org/x/image/vector"
)

// Rasterize renders p into a w*h coverage mask with the nonzero rule.
func Rasterize(p VectorPath, w, h int) *image.Alpha {
	dst := image.NewAlpha(image.Rect(0, 0, w, h))
	if p.Empty() {
		return dst
	}
	r := vector.NewRasterizer(w, h)
	r.DrawOp = draw.Src
	p.Each(func(c Contour) { AddContour(r, c, 1, 0, 0) })
	r.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})
	return dst
}

// AddContour appends c to r, scaled by s and translated by (dx, dy).
func AddContour(r *vector.Rasterizer, c Contour, s, dx, dy float64) {
	pt := func(p Point) (float32, float32) {
		return float32(p.X*s + dx), float32(p.Y*s + dy)
	}
	r.MoveTo(pt(c.Start))
	for _, seg := range c.Segments {
		switch seg.Kind {
		case Cubic:
			x1, y1 := pt(seg.C1)
			x2, y2 := pt(seg.C2)
			x3, y3 := pt(seg.To)
			r.CubeTo(x1, y1, x2, y2, x3, y3)
		default:
			r.LineTo(pt(seg.To))
		}
	}
	r.ClosePath()
}
