package canvas

// Kind distinguishes draw commands.
type Kind int

const (
	KindPath Kind = iota
	KindRect
	KindText
)

// Anchor aligns text horizontally around its position.
type Anchor int

const (
	AnchorStart Anchor = iota
	AnchorMiddle
	AnchorEnd
)

// Style is the paint applied to a command. Empty colors mean "none".
type Style struct {
	Fill        string  `json:"fill,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
	Dashed      bool    `json:"dashed,omitempty"`
}

// alpha returns the effective opacity, treating zero as opaque.
func (s Style) alpha() float64 {
	if s.Opacity <= 0 || s.Opacity > 1 {
		return 1
	}
	return s.Opacity
}

// Command is a single draw instruction.
type Command struct {
	Kind     Kind    `json:"kind"`
	Path     Path    `json:"path,omitempty"`
	Rect     Rect    `json:"rect,omitempty"`
	Text     string  `json:"text,omitempty"`
	At       Point   `json:"at,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	Anchor   Anchor  `json:"anchor,omitempty"`
	Style    Style   `json:"style"`
}

// Region is a clickable area. Key identifies it to the layer that built the
// scene; Polygon, when set, refines the Bounds test.
type Region struct {
	Key     string  `json:"key"`
	Bounds  Rect    `json:"bounds"`
	Polygon []Point `json:"polygon,omitempty"`
}

// Contains reports whether (x, y) hits the region.
func (r Region) Contains(x, y float64) bool {
	if !r.Bounds.Contains(x, y) {
		return false
	}
	if len(r.Polygon) < 3 {
		return true
	}
	return pointInPolygon(r.Polygon, x, y)
}

// Scene is a complete frame: draw commands in paint order plus hit regions.
type Scene struct {
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	Commands []Command `json:"commands"`
	Regions  []Region  `json:"regions"`
}

func (s *Scene) DrawPath(p Path, st Style) {
	s.Commands = append(s.Commands, Command{Kind: KindPath, Path: p, Style: st})
}

func (s *Scene) DrawRect(r Rect, st Style) {
	s.Commands = append(s.Commands, Command{Kind: KindRect, Rect: r, Style: st})
}

func (s *Scene) DrawText(text string, at Point, size float64, anchor Anchor, st Style) {
	s.Commands = append(s.Commands, Command{Kind: KindText, Text: text, At: at, FontSize: size, Anchor: anchor, Style: st})
}

// AddRegion registers a rectangular hit area.
func (s *Scene) AddRegion(key string, r Rect) {
	s.Regions = append(s.Regions, Region{Key: key, Bounds: r})
}

// AddPolygonRegion registers a polygonal hit area.
func (s *Scene) AddPolygonRegion(key string, pts []Point) {
	s.Regions = append(s.Regions, Region{Key: key, Bounds: Polygon(pts...).Bounds(), Polygon: pts})
}

// HitTest returns the key of the topmost region containing (x, y).
// Regions registered later sit above earlier ones.
func (s *Scene) HitTest(x, y float64) (string, bool) {
	for i := len(s.Regions) - 1; i >= 0; i-- {
		if s.Regions[i].Contains(x, y) {
			return s.Regions[i].Key, true
		}
	}
	return "", false
}

// pointInPolygon is the even-odd ray casting test.
func pointInPolygon(poly []Point, x, y float64) bool {
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Y > y) != (pj.Y > y) {
			xCross := (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y) + pi.X
			if x < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}
