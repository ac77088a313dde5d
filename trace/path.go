package trace

import "github.com/wudi/notekit/band"

// Point is a position in page pixel space, origin top-left, y down.
type Point struct{ X, Y float64 }

func (p Point) add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// interval returns the point at fraction t on the way from a to b.
func interval(t float64, a, b Point) Point { return a.add(b.sub(a).scale(t)) }

type SegmentKind uint8

const (
	Line SegmentKind = iota
	Cubic
)

// Segment ends at To. Cubic segments use C1 and C2 as control points.
type Segment struct {
	Kind   SegmentKind
	C1, C2 Point
	To     Point
}

// Contour is a closed curve. The last segment ends at Start.
type Contour struct {
	Start    Point
	Segments []Segment
}

// Area is the signed shoelace area over the segment end points. Outer
// boundaries are positive and holes negative in y-down space. For cubic
// segments the control polygon is ignored, so the value is approximate.
func (c Contour) Area() float64 {
	var a float64
	prev := c.Start
	for _, s := range c.Segments {
		a += prev.X*s.To.Y - s.To.X*prev.Y
		prev = s.To
	}
	a += prev.X*c.Start.Y - c.Start.X*prev.Y
	return a / 2
}

// Vertices lists the start point followed by every segment end except the
// closing one.
func (c Contour) Vertices() []Point {
	out := []Point{c.Start}
	for i, s := range c.Segments {
		if i == len(c.Segments)-1 && s.To == c.Start {
			break
		}
		out = append(out, s.To)
	}
	return out
}

// Shape is one connected region: its outer boundary and the holes inside.
type Shape struct {
	Outer Contour
	Holes []Contour
}

// VectorPath is the filled outline of all pixels of one band.
type VectorPath struct {
	Band   band.Band
	Shapes []Shape
}

func (p VectorPath) Empty() bool { return len(p.Shapes) == 0 }

// Contours counts outer and hole contours.
func (p VectorPath) Contours() int {
	n := 0
	for _, s := range p.Shapes {
		n += 1 + len(s.Holes)
	}
	return n
}

// Each calls fn for every contour, outer boundaries before their holes.
func (p VectorPath) Each(fn func(Contour)) {
	for _, s := range p.Shapes {
		fn(s.Outer)
		for _, h := range s.Holes {
			fn(h)
		}
	}
}
