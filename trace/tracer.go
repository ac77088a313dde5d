package trace

import (
	"context"

	"github.com/wudi/notekit/band"
)

// Options tunes the curve fitting stage. Boundary tracing has no knobs.
type Options struct {
	// Smooth enables simplification and Bézier fitting. When false the
	// contours are the exact pixel boundaries.
	Smooth bool
	// Tolerance is the Douglas-Peucker distance in pixels.
	Tolerance float64
	// AlphaMax is the corner threshold; larger values give rounder output.
	AlphaMax float64
	// TurdSize drops regions and holes of at most this many pixels.
	TurdSize int
	// Background also traces the Background band.
	Background bool
}

func DefaultOptions() Options {
	return Options{Smooth: true, Tolerance: 0.6, AlphaMax: 1.0}
}

// Trace returns one VectorPath per band present in lb, in fill order.
func Trace(ctx context.Context, lb *band.Labeled, opts Options) ([]VectorPath, error) {
	t := newTracer(lb)
	var out []VectorPath
	for _, b := range lb.Present.Bands() {
		if b == band.Background && !opts.Background {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vp, err := t.band(b, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, vp)
	}
	return out, nil
}

// TraceBand traces a single band. A band without pixels yields an empty
// path.
func TraceBand(lb *band.Labeled, b band.Band, opts Options) (VectorPath, error) {
	if !lb.Present.Has(b) {
		return VectorPath{Band: b}, nil
	}
	return newTracer(lb).band(b, opts)
}

// Directions in y-down image space, clockwise.
const (
	east = iota
	south
	west
	north
)

var (
	dirX = [4]int{1, 0, -1, 0}
	dirY = [4]int{0, 1, 0, -1}
	// Pixels ahead-left and ahead-right of a vertex for each heading.
	aheadLeftX  = [4]int{0, 0, -1, -1}
	aheadLeftY  = [4]int{-1, 0, 0, -1}
	aheadRightX = [4]int{0, -1, -1, 0}
	aheadRightY = [4]int{0, 0, -1, -1}
)

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) get(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }
func (b bitset) set(i int)      { b[i>>6] |= 1 << (uint(i) & 63) }

func (b bitset) clear() {
	for i := range b {
		b[i] = 0
	}
}

// loop is one closed boundary. Its corners are verts[start:end] as x,y
// pairs.
type loop struct {
	start, end int
	area2      int64
	comp       int32
	x, y       int
}

// tracer holds the scratch buffers of one labelled bitmap. The mask and
// component grids carry a one pixel frame so that neighbour lookups never
// leave the buffer.
type tracer struct {
	lb     *band.Labeled
	w, h   int
	pw     int
	mask   []bool
	comp   []int32
	hvis   bitset // edges (x,y)-(x+1,y), index y*w+x
	vvis   bitset // edges (x,y)-(x,y+1), index y*(w+1)+x
	stack  []int32
	verts  []int32
	loops  []loop
	budget int
}

func newTracer(lb *band.Labeled) *tracer {
	w, h := lb.Width, lb.Height
	pw := w + 2
	return &tracer{
		lb:     lb,
		w:      w,
		h:      h,
		pw:     pw,
		mask:   make([]bool, pw*(h+2)),
		comp:   make([]int32, pw*(h+2)),
		hvis:   newBitset(w * (h + 1)),
		vvis:   newBitset((w + 1) * h),
		budget: w*(h+1) + (w+1)*h,
	}
}

func (t *tracer) in(x, y int) bool { return t.mask[(y+1)*t.pw+x+1] }

func (t *tracer) reset(b band.Band) {
	for i := range t.mask {
		t.mask[i] = false
		t.comp[i] = 0
	}
	for y := 0; y < t.h; y++ {
		row := t.lb.Labels[y*t.w : (y+1)*t.w]
		base := (y+1)*t.pw + 1
		for x, l := range row {
			t.mask[base+x] = l == b
		}
	}
	t.hvis.clear()
	t.vvis.clear()
	t.verts = t.verts[:0]
	t.loops = t.loops[:0]
}

// label assigns 4-connected component ids with a scanline flood fill and
// returns the number of components.
func (t *tracer) label() int32 {
	var n int32
	for y := 0; y < t.h; y++ {
		base := (y+1)*t.pw + 1
		for x := 0; x < t.w; x++ {
			i := base + x
			if t.mask[i] && t.comp[i] == 0 {
				n++
				t.fill(i, n)
			}
		}
	}
	return n
}

func (t *tracer) fill(seed int, id int32) {
	t.stack = append(t.stack[:0], int32(seed))
	for len(t.stack) > 0 {
		i := int(t.stack[len(t.stack)-1])
		t.stack = t.stack[:len(t.stack)-1]
		if t.comp[i] != 0 {
			continue
		}
		l, r := i, i
		for t.mask[l-1] && t.comp[l-1] == 0 {
			l--
		}
		for t.mask[r+1] && t.comp[r+1] == 0 {
			r++
		}
		for j := l; j <= r; j++ {
			t.comp[j] = id
		}
		for _, off := range [2]int{-t.pw, t.pw} {
			run := false
			for j := l; j <= r; j++ {
				k := j + off
				if t.mask[k] && t.comp[k] == 0 {
					if !run {
						t.stack = append(t.stack, int32(k))
						run = true
					}
				} else {
					run = false
				}
			}
		}
	}
}

// mark flags the edge leaving vertex (x,y) in direction d and reports
// whether it was unvisited.
func (t *tracer) mark(x, y, d int) bool {
	var bs bitset
	var i int
	switch d {
	case east:
		bs, i = t.hvis, y*t.w+x
	case west:
		bs, i = t.hvis, y*t.w+x-1
	case south:
		bs, i = t.vvis, y*(t.w+1)+x
	default:
		bs, i = t.vvis, (y-1)*(t.w+1)+x
	}
	if bs.get(i) {
		return false
	}
	bs.set(i)
	return true
}

// turn picks the heading after vertex (x,y). The region stays on the right:
// with both pixels ahead inside the walk turns left, with only the right
// one inside it goes straight, otherwise it turns right. Turning right at a
// saddle keeps diagonal neighbours in separate loops, matching 4-connected
// components.
func (t *tracer) turn(x, y, d int) int {
	al := t.in(x+aheadLeftX[d], y+aheadLeftY[d])
	ar := t.in(x+aheadRightX[d], y+aheadRightY[d])
	switch {
	case al && ar:
		return (d + 3) & 3
	case ar:
		return d
	default:
		return (d + 1) & 3
	}
}

// walk follows one loop from the edge leaving (sx,sy) in direction sd and
// records its corners.
func (t *tracer) walk(b band.Band, sx, sy, sd int) (loop, error) {
	lp := loop{start: len(t.verts)}
	x, y, d := sx, sy, sd
	for steps := 0; ; steps++ {
		if steps > t.budget {
			return lp, &TraceError{Band: b, X: sx, Y: sy, Reason: "loop exceeds edge budget"}
		}
		if !t.mark(x, y, d) {
			return lp, &TraceError{Band: b, X: x, Y: y, Reason: "boundary edge visited twice"}
		}
		nx, ny := x+dirX[d], y+dirY[d]
		lp.area2 += int64(x)*int64(ny) - int64(nx)*int64(y)
		x, y = nx, ny
		nd := t.turn(x, y, d)
		if nd != d {
			t.verts = append(t.verts, int32(x), int32(y))
		}
		if x == sx && y == sy && nd == sd {
			break
		}
		d = nd
	}
	lp.end = len(t.verts)
	if lp.end-lp.start < 8 {
		return lp, &TraceError{Band: b, X: sx, Y: sy, Reason: "loop with fewer than four corners"}
	}
	return lp, nil
}

// loopsFor scans every horizontal edge in raster order and walks each
// boundary loop the first time one of its edges is met.
func (t *tracer) loopsFor(b band.Band) error {
	for y := 0; y <= t.h; y++ {
		for x := 0; x < t.w; x++ {
			below, above := t.in(x, y), t.in(x, y-1)
			if below == above || t.hvis.get(y*t.w+x) {
				continue
			}
			var (
				lp  loop
				err error
				px  = x
				py  = y
			)
			if below {
				lp, err = t.walk(b, x, y, east)
			} else {
				lp, err = t.walk(b, x+1, y, west)
				py = y - 1
			}
			if err != nil {
				return err
			}
			lp.comp = t.comp[(py+1)*t.pw+px+1]
			lp.x, lp.y = px, py
			t.loops = append(t.loops, lp)
		}
	}
	return nil
}

type rawShape struct {
	outer int
	holes []int
}

func (t *tracer) band(b band.Band, opts Options) (VectorPath, error) {
	vp := VectorPath{Band: b}
	t.reset(b)
	ncomp := t.label()
	if ncomp == 0 {
		return vp, nil
	}
	if err := t.loopsFor(b); err != nil {
		return vp, err
	}

	shapeOf := make([]int32, ncomp+1)
	for i := range shapeOf {
		shapeOf[i] = -1
	}
	var shapes []rawShape
	for i, lp := range t.loops {
		if lp.area2 <= 0 {
			continue
		}
		if shapeOf[lp.comp] >= 0 {
			return vp, &TraceError{Band: b, X: lp.x, Y: lp.y, Reason: "component with two outer boundaries"}
		}
		shapeOf[lp.comp] = int32(len(shapes))
		shapes = append(shapes, rawShape{outer: i})
	}
	for i, lp := range t.loops {
		if lp.area2 >= 0 {
			continue
		}
		s := shapeOf[lp.comp]
		if s < 0 {
			return vp, &TraceError{Band: b, X: lp.x, Y: lp.y, Reason: "hole without outer boundary"}
		}
		shapes[s].holes = append(shapes[s].holes, i)
	}

	turd := int64(opts.TurdSize) * 2
	for _, rs := range shapes {
		outer := t.loops[rs.outer]
		if turd > 0 && outer.area2 <= turd {
			continue
		}
		shape := Shape{Outer: fit(t.corners(outer), opts)}
		for _, hi := range rs.holes {
			hole := t.loops[hi]
			if turd > 0 && -hole.area2 <= turd {
				continue
			}
			shape.Holes = append(shape.Holes, fit(t.corners(hole), opts))
		}
		vp.Shapes = append(vp.Shapes, shape)
	}
	return vp, nil
}

func (t *tracer) corners(lp loop) []Point {
	pts := make([]Point, 0, (lp.end-lp.start)/2)
	for i := lp.start; i < lp.end; i += 2 {
		pts = append(pts, Point{float64(t.verts[i]), float64(t.verts[i+1])})
	}
	return pts
}
