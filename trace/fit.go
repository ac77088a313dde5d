package trace

import "math"

// fit turns the corners of a traced loop into a contour. Without smoothing
// the polygon is returned unchanged.
func fit(pts []Point, opts Options) Contour {
	if !opts.Smooth || len(pts) < 3 {
		return polygon(pts)
	}
	if len(pts) > 4 && opts.Tolerance > 0 {
		if s := simplify(pts, opts.Tolerance); len(s) >= 3 {
			pts = s
		}
	}
	return smooth(pts, opts.AlphaMax)
}

func polygon(pts []Point) Contour {
	c := Contour{Start: pts[0], Segments: make([]Segment, 0, len(pts))}
	for _, p := range pts[1:] {
		c.Segments = append(c.Segments, Segment{Kind: Line, To: p})
	}
	c.Segments = append(c.Segments, Segment{Kind: Line, To: pts[0]})
	return c
}

// simplify is Douglas-Peucker on a closed polygon, driven by an explicit
// stack of index spans. Span ends equal to len(pts) stand for index 0.
func simplify(pts []Point, tol float64) []Point {
	n := len(pts)
	far, best := 0, -1.0
	for i := 1; i < n; i++ {
		if d := dist2(pts[0], pts[i]); d > best {
			far, best = i, d
		}
	}
	keep := make([]bool, n)
	keep[0], keep[far] = true, true

	type span struct{ a, b int }
	stack := []span{{0, far}, {far, n}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pa, pb := pts[s.a], pts[s.b%n]
		idx, maxd := -1, tol
		for i := s.a + 1; i < s.b; i++ {
			if d := segmentDist(pts[i], pa, pb); d > maxd {
				idx, maxd = i, d
			}
		}
		if idx < 0 {
			continue
		}
		keep[idx] = true
		stack = append(stack, span{s.a, idx}, span{idx, s.b})
	}

	out := make([]Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, pts[i])
		}
	}
	return out
}

func dist2(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func segmentDist(p, a, b Point) float64 {
	ab := b.sub(a)
	l2 := ab.X*ab.X + ab.Y*ab.Y
	if l2 == 0 {
		return math.Sqrt(dist2(p, a))
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Sqrt(dist2(p, interval(t, a, b)))
}

const (
	alphaMin = 0.55
	alphaCap = 1.0
)

// smooth runs through the midpoints of the polygon edges. Each vertex is
// either kept as a sharp corner or replaced by a cubic whose control points
// sit on the two adjacent edges, following potrace's corner rule.
func smooth(q []Point, alphaMax float64) Contour {
	n := len(q)
	mid := func(i int) Point { return interval(0.5, q[i%n], q[(i+1)%n]) }
	c := Contour{Start: mid(n - 1), Segments: make([]Segment, 0, n+n/2)}
	for j := 0; j < n; j++ {
		i, k := (j+n-1)%n, (j+1)%n
		end := mid(j)
		alpha := cornerAlpha(q[i], q[j], q[k])
		if alpha >= alphaMax {
			c.Segments = append(c.Segments, Segment{Kind: Line, To: q[j]}, Segment{Kind: Line, To: end})
			continue
		}
		alpha = math.Max(alphaMin, math.Min(alphaCap, alpha))
		c.Segments = append(c.Segments, Segment{
			Kind: Cubic,
			C1:   interval(0.5+0.5*alpha, q[i], q[j]),
			C2:   interval(0.5+0.5*alpha, q[k], q[j]),
			To:   end,
		})
	}
	return c
}

// cornerAlpha measures how sharply the path bends at p1.
func cornerAlpha(p0, p1, p2 Point) float64 {
	denom := ddenom(p0, p2)
	if denom == 0 {
		return 4.0 / 3.0
	}
	dd := math.Abs(dpara(p0, p1, p2) / denom)
	alpha := 0.0
	if dd > 1 {
		alpha = 1 - 1/dd
	}
	return alpha / 0.75
}

// dpara is the cross product (p1-p0)x(p2-p0).
func dpara(p0, p1, p2 Point) float64 {
	return (p1.X-p0.X)*(p2.Y-p0.Y) - (p2.X-p0.X)*(p1.Y-p0.Y)
}

// ddenom is the denominator of the corner test: the cross product of p2-p0
// with its L-infinity orthogonal.
func ddenom(p0, p2 Point) float64 {
	ry := sign(p2.X - p0.X)
	rx := -sign(p2.Y - p0.Y)
	return ry*(p2.X-p0.X) - rx*(p2.Y-p0.Y)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
