// Package compose places traced paths, titles and links on an output page.
package compose

import (
	"sort"

	"github.com/wudi/notekit/band"
	"github.com/wudi/notekit/contentstream"
	"github.com/wudi/notekit/coords"
	"github.com/wudi/notekit/note"
	"github.com/wudi/notekit/trace"
)

// PixelsPerInch of the A5X screen.
const PixelsPerInch = 226

// PointsPerPixel converts device pixels to PDF points.
const PointsPerPixel = 72.0 / PixelsPerInch

// PixelToPoint maps page pixels (origin top-left, y down) of a page h
// pixels tall to PDF user space (origin bottom-left, y up):
// (x, y) -> (x*s, (h-y)*s).
func PixelToPoint(h int) coords.Matrix {
	s := PointsPerPixel
	return coords.Scale(s, -s).Multiply(coords.Translate(0, float64(h)*s))
}

// LayerPaths holds the traced bands of one layer.
type LayerPaths struct {
	Name  string
	Paths []trace.VectorPath
}

// Input is everything known about one page after tracing.
type Input struct {
	Index         int
	PageID        string
	Width, Height int
	// Layers bottom to top.
	Layers  []LayerPaths
	Titles  []note.Title
	Links   []note.Link
	Palette band.Palette
}

// Path is one filled band outline in points.
type Path struct {
	Layer string
	Band  band.Band
	Color band.Color
	Path  contentstream.Path
}

// Title is a placed title region. Pixel keeps the source rectangle for
// ordering.
type Title struct {
	Rect  coords.Rect
	Pixel note.Rect
	Text  string
	Level int
}

// Link is a placed link rectangle with its unresolved target.
type Link struct {
	Rect   coords.Rect
	Target note.LinkTarget
}

// Page is a composed page in PDF user space.
type Page struct {
	Index         int
	PageID        string
	Width, Height float64
	Paths         []Path
	Titles        []Title
	Links         []Link
}

var fillRank = func() [8]int {
	var r [8]int
	for i, b := range band.FillOrder() {
		r[b] = i
	}
	return r
}()

// Compose transforms every element of in into points. Paths are ordered by
// layer and then by band fill order; bands with a transparent colour and
// empty paths are left out.
func Compose(in Input) *Page {
	m := PixelToPoint(in.Height)
	page := &Page{
		Index:  in.Index,
		PageID: in.PageID,
		Width:  float64(in.Width) * PointsPerPixel,
		Height: float64(in.Height) * PointsPerPixel,
	}
	for _, layer := range in.Layers {
		paths := append([]trace.VectorPath(nil), layer.Paths...)
		sort.SliceStable(paths, func(i, j int) bool { return fillRank[paths[i].Band] < fillRank[paths[j].Band] })
		for _, vp := range paths {
			color := in.Palette[vp.Band]
			if vp.Empty() || color.Transparent() {
				continue
			}
			page.Paths = append(page.Paths, Path{
				Layer: layer.Name,
				Band:  vp.Band,
				Color: color,
				Path:  toPath(vp, m),
			})
		}
	}
	for _, t := range in.Titles {
		page.Titles = append(page.Titles, Title{
			Rect:  pixelRect(m, t.Rect),
			Pixel: t.Rect,
			Text:  t.Text,
			Level: t.Level,
		})
	}
	for _, l := range in.Links {
		page.Links = append(page.Links, Link{Rect: pixelRect(m, l.Rect), Target: l.Target})
	}
	return page
}

func pixelRect(m coords.Matrix, r note.Rect) coords.Rect {
	return m.TransformRect(coords.Rect{
		LLX: float64(r.X), LLY: float64(r.Y),
		URX: float64(r.X + r.W), URY: float64(r.Y + r.H),
	})
}

func toPath(vp trace.VectorPath, m coords.Matrix) contentstream.Path {
	var p contentstream.Path
	vp.Each(func(c trace.Contour) {
		p.Subpaths = append(p.Subpaths, toSubpath(c, m))
	})
	return p
}

func toSubpath(c trace.Contour, m coords.Matrix) contentstream.Subpath {
	pt := func(p trace.Point) coords.Point { return m.Transform(coords.Point{X: p.X, Y: p.Y}) }
	start := pt(c.Start)
	sp := contentstream.Subpath{
		Points: make([]contentstream.PathPoint, 0, len(c.Segments)+1),
		Closed: true,
	}
	sp.Points = append(sp.Points, contentstream.PathPoint{X: start.X, Y: start.Y, Type: contentstream.PathMoveTo})
	for i, seg := range c.Segments {
		to := pt(seg.To)
		if seg.Kind == trace.Cubic {
			c1, c2 := pt(seg.C1), pt(seg.C2)
			sp.Points = append(sp.Points, contentstream.PathPoint{
				X: to.X, Y: to.Y, Type: contentstream.PathCurveTo,
				Control1X: c1.X, Control1Y: c1.Y,
				Control2X: c2.X, Control2Y: c2.Y,
			})
			continue
		}
		// The closing line is implied by h.
		if i == len(c.Segments)-1 && seg.To == c.Start {
			break
		}
		sp.Points = append(sp.Points, contentstream.PathPoint{X: to.X, Y: to.Y, Type: contentstream.PathLineTo})
	}
	return sp
}
