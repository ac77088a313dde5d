package contentstream

import (
	"math"

	"github.com/wudi/notekit/coords"
)

// TextRenderMode matches PDF text rendering modes set via Tr operator.
type TextRenderMode int

const (
	TextFill TextRenderMode = iota
	TextStroke
	TextFillStroke
	TextInvisible
)

// Path describes a graphics path made of subpaths.
type Path struct {
	Subpaths []Subpath
}

// Subpath describes a portion of a path.
type Subpath struct {
	Points []PathPoint
	Closed bool
}

// PathPoint identifies a path segment and its coordinates.
type PathPoint struct {
	X, Y                 float64
	Type                 PathPointType
	Control1X, Control1Y float64
	Control2X, Control2Y float64
}

// PathPointType enumerates path segment types.
type PathPointType int

const (
	PathMoveTo PathPointType = iota
	PathLineTo
	PathCurveTo
)

// Transform maps every point and control point through m.
func (p Path) Transform(m coords.Matrix) Path {
	out := Path{Subpaths: make([]Subpath, len(p.Subpaths))}
	for i, sp := range p.Subpaths {
		pts := make([]PathPoint, len(sp.Points))
		for j, pt := range sp.Points {
			a := m.Transform(coords.Point{X: pt.X, Y: pt.Y})
			c1 := m.Transform(coords.Point{X: pt.Control1X, Y: pt.Control1Y})
			c2 := m.Transform(coords.Point{X: pt.Control2X, Y: pt.Control2Y})
			pts[j] = PathPoint{
				X: a.X, Y: a.Y, Type: pt.Type,
				Control1X: c1.X, Control1Y: c1.Y,
				Control2X: c2.X, Control2Y: c2.Y,
			}
		}
		out.Subpaths[i] = Subpath{Points: pts, Closed: sp.Closed}
	}
	return out
}

// Bounds returns the box around all points and control points. An empty
// path yields the zero rectangle.
func (p Path) Bounds() coords.Rect {
	r := coords.Rect{LLX: math.Inf(1), LLY: math.Inf(1), URX: math.Inf(-1), URY: math.Inf(-1)}
	grow := func(x, y float64) {
		r.LLX, r.LLY = math.Min(r.LLX, x), math.Min(r.LLY, y)
		r.URX, r.URY = math.Max(r.URX, x), math.Max(r.URY, y)
	}
	n := 0
	for _, sp := range p.Subpaths {
		for _, pt := range sp.Points {
			grow(pt.X, pt.Y)
			if pt.Type == PathCurveTo {
				grow(pt.Control1X, pt.Control1Y)
				grow(pt.Control2X, pt.Control2Y)
			}
			n++
		}
	}
	if n == 0 {
		return coords.Rect{}
	}
	return r
}
