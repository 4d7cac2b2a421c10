// Package canvas holds the rendering-surface primitives used by the chart
// renderer: vector paths, draw commands, hit regions and the SVG and PNG
// encoders that turn a Scene into bytes.
package canvas

import "math"

// Point is a position in scene units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Op identifies a path segment verb.
type Op byte

const (
	OpMove  Op = 'M'
	OpLine  Op = 'L'
	OpQuad  Op = 'Q'
	OpClose Op = 'Z'
)

// Segment is one path verb with its control and end points.
type Segment struct {
	Op  Op      `json:"op"`
	Pts []Point `json:"pts,omitempty"`
}

// Path is an ordered list of segments.
type Path struct {
	Segs []Segment `json:"segs"`
}

func (p *Path) MoveTo(x, y float64) *Path {
	p.Segs = append(p.Segs, Segment{Op: OpMove, Pts: []Point{{x, y}}})
	return p
}

func (p *Path) LineTo(x, y float64) *Path {
	p.Segs = append(p.Segs, Segment{Op: OpLine, Pts: []Point{{x, y}}})
	return p
}

func (p *Path) QuadTo(cx, cy, x, y float64) *Path {
	p.Segs = append(p.Segs, Segment{Op: OpQuad, Pts: []Point{{cx, cy}, {x, y}}})
	return p
}

func (p *Path) Close() *Path {
	p.Segs = append(p.Segs, Segment{Op: OpClose})
	return p
}

// Clone returns a deep copy so callers may transform it freely.
func (p Path) Clone() Path {
	out := Path{Segs: make([]Segment, len(p.Segs))}
	for i, s := range p.Segs {
		out.Segs[i] = Segment{Op: s.Op, Pts: append([]Point(nil), s.Pts...)}
	}
	return out
}

// Map returns a copy of the path with fn applied to every point.
func (p Path) Map(fn func(Point) Point) Path {
	out := p.Clone()
	for i := range out.Segs {
		for j := range out.Segs[i].Pts {
			out.Segs[i].Pts[j] = fn(out.Segs[i].Pts[j])
		}
	}
	return out
}

// Transform scales then translates every point.
func (p Path) Transform(sx, sy, dx, dy float64) Path {
	return p.Map(func(pt Point) Point {
		return Point{X: pt.X*sx + dx, Y: pt.Y*sy + dy}
	})
}

// Bounds returns the axis-aligned box of all points, control points included.
func (p Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, s := range p.Segs {
		for _, pt := range s.Pts {
			minX = math.Min(minX, pt.X)
			minY = math.Min(minY, pt.Y)
			maxX = math.Max(maxX, pt.X)
			maxY = math.Max(maxY, pt.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Polygon builds a closed path through pts.
func Polygon(pts ...Point) Path {
	var p Path
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
			continue
		}
		p.LineTo(pt.X, pt.Y)
	}
	if len(pts) > 0 {
		p.Close()
	}
	return p
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether (x, y) lies inside or on the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Corners returns the rectangle as a clockwise polygon.
func (r Rect) Corners() []Point {
	return []Point{{r.X, r.Y}, {r.X + r.W, r.Y}, {r.X + r.W, r.Y + r.H}, {r.X, r.Y + r.H}}
}
