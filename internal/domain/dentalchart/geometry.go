package dentalchart

import (
	"sync"

	"github.com/ehr/odontogram/internal/platform/canvas"
)

// Tooth outlines are authored in a ShapeWidth x ShapeHeight box with the
// crown on top, which is how lower teeth are drawn. Upper teeth are the
// vertical mirror.
const (
	ShapeWidth  = 40.0
	ShapeHeight = 100.0
	cervixY     = 44.0
)

// ToothShape is the outline of one tooth: its crown and each of its roots.
type ToothShape struct {
	Crown canvas.Path   `json:"crown"`
	Roots []canvas.Path `json:"roots"`
}

func (s ToothShape) clone() ToothShape {
	out := ToothShape{Crown: s.Crown.Clone(), Roots: make([]canvas.Path, len(s.Roots))}
	for i, r := range s.Roots {
		out.Roots[i] = r.Clone()
	}
	return out
}

type rootSpec struct{ x0, x1, tipX, tipY float64 }

var rootSpecs = map[ToothType][]rootSpec{
	Molar:          {{4, 14, 8, 94}, {15, 25, 20, 98}, {26, 36, 32, 94}},
	Premolar:       {{7, 19, 12, 96}, {21, 33, 28, 96}},
	Canine:         {{12, 28, 20, 100}},
	LateralIncisor: {{13, 27, 20, 94}},
	CentralIncisor: {{12, 28, 20, 96}},
}

func crownPath(t ToothType) canvas.Path {
	var p canvas.Path
	switch t {
	case Molar:
		p.MoveTo(2, cervixY).LineTo(2, 14).
			QuadTo(6, 4, 12, 8).QuadTo(16, 2, 20, 8).
			QuadTo(24, 2, 28, 8).QuadTo(34, 4, 38, 14).
			LineTo(38, cervixY)
	case Premolar:
		p.MoveTo(5, cervixY).LineTo(5, 16).
			QuadTo(10, 4, 15, 10).QuadTo(20, 4, 25, 10).
			QuadTo(30, 4, 35, 16).LineTo(35, cervixY)
	case Canine:
		p.MoveTo(7, cervixY).LineTo(7, 18).
			QuadTo(14, 8, 20, 2).QuadTo(26, 8, 33, 18).
			LineTo(33, cervixY)
	case LateralIncisor:
		p.MoveTo(9, cervixY).LineTo(8, 10).
			QuadTo(20, 4, 32, 10).LineTo(31, cervixY)
	default:
		p.MoveTo(7, cervixY).LineTo(6, 8).
			QuadTo(20, 2, 34, 8).LineTo(33, cervixY)
	}
	return *p.Close()
}

func rootPath(r rootSpec) canvas.Path {
	var p canvas.Path
	mid := (cervixY + r.tipY) / 2
	p.MoveTo(r.x0, cervixY).
		QuadTo(r.x0, mid, r.tipX, r.tipY).
		QuadTo(r.x1, mid, r.x1, cervixY).
		Close()
	return p
}

func buildShape(t ToothType, arch Arch) ToothShape {
	shape := ToothShape{Crown: crownPath(t)}
	for _, r := range rootSpecs[t] {
		shape.Roots = append(shape.Roots, rootPath(r))
	}
	if arch == ArchUpper {
		mirror := func(p canvas.Path) canvas.Path { return p.Transform(1, -1, 0, ShapeHeight) }
		shape.Crown = mirror(shape.Crown)
		for i := range shape.Roots {
			shape.Roots[i] = mirror(shape.Roots[i])
		}
	}
	return shape
}

type shapeKey struct {
	t    ToothType
	arch Arch
}

var (
	shapeMu    sync.Mutex
	shapeCache = map[shapeKey]ToothShape{}
)

// ShapesFor returns the outline for a tooth type in an arch. Results are
// memoised; every call returns an independent copy.
func ShapesFor(t ToothType, arch Arch) ToothShape {
	k := shapeKey{t, arch}
	shapeMu.Lock()
	s, ok := shapeCache[k]
	if !ok {
		s = buildShape(t, arch)
		shapeCache[k] = s
	}
	shapeMu.Unlock()
	return s.clone()
}
