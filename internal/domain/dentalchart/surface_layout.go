package dentalchart

// Position is a visual slot of the five-surface diagram.
type Position int

const (
	PosTop Position = iota
	PosBottom
	PosLeft
	PosRight
	PosCenter
)

// Positions lists the slots in drawing order; Center is drawn last.
var Positions = [5]Position{PosTop, PosBottom, PosLeft, PosRight, PosCenter}

func (p Position) String() string {
	switch p {
	case PosTop:
		return "top"
	case PosBottom:
		return "bottom"
	case PosLeft:
		return "left"
	case PosRight:
		return "right"
	case PosCenter:
		return "center"
	}
	return "unknown"
}

// SurfaceLayout assigns a semantic surface to each visual slot.
type SurfaceLayout struct {
	Top    Surface `json:"top"`
	Bottom Surface `json:"bottom"`
	Left   Surface `json:"left"`
	Right  Surface `json:"right"`
	Center Surface `json:"center"`
}

// At returns the surface drawn in slot p.
func (l SurfaceLayout) At(p Position) Surface {
	switch p {
	case PosTop:
		return l.Top
	case PosBottom:
		return l.Bottom
	case PosLeft:
		return l.Left
	case PosRight:
		return l.Right
	}
	return l.Center
}

// PositionOf is the inverse of At.
func (l SurfaceLayout) PositionOf(s Surface) Position {
	for _, p := range Positions {
		if l.At(p) == s {
			return p
		}
	}
	return PosCenter
}

// ResolveSurfaces maps the diagram slots of a tooth to surfaces. Buccal faces
// the cheek, which is up for the upper arch and down for the lower. Mesial
// faces the midline, which lies to the viewer's right of quadrants 1 and 4
// and to the left of quadrants 2 and 3.
func ResolveSurfaces(arch Arch, quadrant int) SurfaceLayout {
	l := SurfaceLayout{Top: Buccal, Bottom: Lingual, Center: Occlusal}
	if arch == ArchLower {
		l.Top, l.Bottom = l.Bottom, l.Top
	}
	midlineRight := quadrant == 1 || quadrant == 4
	l.Left, l.Right = Mesial, Distal
	if midlineRight {
		l.Left, l.Right = l.Right, l.Left
	}
	return l
}

// LayoutFor resolves the layout of an internal tooth id.
func LayoutFor(internal int) SurfaceLayout {
	c := Classify(internal)
	return ResolveSurfaces(c.Arch, c.Quadrant)
}
