package dentalchart

import (
	"encoding/json"
	"fmt"
)

// Surface is one of the five clinical faces of a tooth. The declaration
// order is also the order digit keys 1..5 select them in.
type Surface int

const (
	Buccal Surface = iota
	Lingual
	Mesial
	Distal
	Occlusal
	surfaceCount
)

// Surfaces lists the five faces in key order.
var Surfaces = [surfaceCount]Surface{Buccal, Lingual, Mesial, Distal, Occlusal}

var surfaceNames = [surfaceCount]string{"buccal", "lingual", "mesial", "distal", "occlusal"}

func (s Surface) String() string {
	if s < 0 || s >= surfaceCount {
		return fmt.Sprintf("surface(%d)", int(s))
	}
	return surfaceNames[s]
}

// Valid reports whether s names one of the five faces.
func (s Surface) Valid() bool { return s >= 0 && s < surfaceCount }

// ParseSurface accepts the lower-case surface name.
func ParseSurface(name string) (Surface, error) {
	for i, n := range surfaceNames {
		if n == name {
			return Surface(i), nil
		}
	}
	return 0, fmt.Errorf("unknown surface %q", name)
}

func (s Surface) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid surface %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Surface) UnmarshalText(b []byte) error {
	v, err := ParseSurface(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category separates surface findings from whole-tooth findings.
type Category string

const (
	CategorySurface Category = "surface"
	CategoryWhole   Category = "whole"
)

// Condition is implemented only by SurfaceCondition and WholeCondition.
type Condition interface {
	Category() Category
	Key() string
	isCondition()
}

// SurfaceCondition is a finding on a single surface.
type SurfaceCondition string

const (
	Healthy   SurfaceCondition = "healthy"
	Caries    SurfaceCondition = "caries"
	Composite SurfaceCondition = "composite"
	Amalgam   SurfaceCondition = "amalgam"
	Gold      SurfaceCondition = "gold"
	Ceramic   SurfaceCondition = "ceramic"
	Sealant   SurfaceCondition = "sealant"
	RootCanal SurfaceCondition = "root_canal"
)

func (SurfaceCondition) Category() Category { return CategorySurface }
func (c SurfaceCondition) Key() string      { return string(c) }
func (SurfaceCondition) isCondition()       {}

// Valid reports whether c is a catalogued surface condition.
func (c SurfaceCondition) Valid() bool {
	e, ok := catalogIndex[c.Key()]
	return ok && e.Category == CategorySurface
}

func (c *SurfaceCondition) UnmarshalText(b []byte) error {
	v := SurfaceCondition(b)
	if !v.Valid() {
		return fmt.Errorf("%w: %q is not a surface condition", ErrConditionCategory, string(b))
	}
	*c = v
	return nil
}

// WholeCondition describes the entire tooth. WholeNone is the null value.
type WholeCondition string

const (
	WholeNone WholeCondition = ""
	Crown     WholeCondition = "crown"
	Veneer    WholeCondition = "veneer"
	Missing   WholeCondition = "missing"
	Implant   WholeCondition = "implant"
	Pontic    WholeCondition = "pontic"
	Fracture  WholeCondition = "fracture"
	Impacted  WholeCondition = "impacted"
)

func (WholeCondition) Category() Category { return CategoryWhole }
func (c WholeCondition) Key() string      { return string(c) }
func (WholeCondition) isCondition()       {}

// Valid reports whether c is WholeNone or a catalogued whole condition.
func (c WholeCondition) Valid() bool {
	if c == WholeNone {
		return true
	}
	e, ok := catalogIndex[c.Key()]
	return ok && e.Category == CategoryWhole
}

// MarshalJSON encodes WholeNone as null.
func (c WholeCondition) MarshalJSON() ([]byte, error) {
	if c == WholeNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

func (c *WholeCondition) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*c = WholeNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v := WholeCondition(s)
	if !v.Valid() {
		return fmt.Errorf("%w: %q is not a whole-tooth condition", ErrConditionCategory, s)
	}
	*c = v
	return nil
}

// CatalogEntry is one selectable condition with its legend styling.
type CatalogEntry struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Category Category `json:"category"`
}

// Condition returns the typed value behind the entry.
func (e CatalogEntry) Condition() Condition {
	if e.Category == CategoryWhole {
		return WholeCondition(e.Key)
	}
	return SurfaceCondition(e.Key)
}

// Catalog is in toolbar order. Healthy is listed last so that switching to
// surface mode lands on a finding rather than the eraser.
var Catalog = []CatalogEntry{
	{Key: string(Caries), Label: "Caries", Color: "#E53935", Category: CategorySurface},
	{Key: string(Composite), Label: "Composite", Color: "#1E88E5", Category: CategorySurface},
	{Key: string(Amalgam), Label: "Amalgam", Color: "#546E7A", Category: CategorySurface},
	{Key: string(Gold), Label: "Gold", Color: "#FFB300", Category: CategorySurface},
	{Key: string(Ceramic), Label: "Ceramic", Color: "#D7CCC8", Category: CategorySurface},
	{Key: string(Sealant), Label: "Sealant", Color: "#43A047", Category: CategorySurface},
	{Key: string(RootCanal), Label: "Root Canal", Color: "#8E24AA", Category: CategorySurface},
	{Key: string(Healthy), Label: "Healthy", Color: "#FFFFFF", Category: CategorySurface},
	{Key: string(Crown), Label: "Crown", Color: "#FDD835", Category: CategoryWhole},
	{Key: string(Veneer), Label: "Veneer", Color: "#4FC3F7", Category: CategoryWhole},
	{Key: string(Missing), Label: "Missing", Color: "#9E9E9E", Category: CategoryWhole},
	{Key: string(Implant), Label: "Implant", Color: "#78909C", Category: CategoryWhole},
	{Key: string(Pontic), Label: "Pontic", Color: "#BCAAA4", Category: CategoryWhole},
	{Key: string(Fracture), Label: "Fracture", Color: "#FF7043", Category: CategoryWhole},
	{Key: string(Impacted), Label: "Impacted", Color: "#A1887F", Category: CategoryWhole},
}

var catalogIndex = func() map[string]CatalogEntry {
	m := make(map[string]CatalogEntry, len(Catalog))
	for _, e := range Catalog {
		m[e.Key] = e
	}
	return m
}()

// Lookup returns the catalog entry for a condition.
func Lookup(c Condition) (CatalogEntry, bool) {
	e, ok := catalogIndex[c.Key()]
	if !ok || e.Category != c.Category() {
		return CatalogEntry{}, false
	}
	return e, true
}

// Label returns the human label, or the raw key when uncatalogued.
func Label(c Condition) string {
	if e, ok := Lookup(c); ok {
		return e.Label
	}
	return c.Key()
}

// Color returns the legend color, white when uncatalogued.
func Color(c Condition) string {
	if e, ok := Lookup(c); ok {
		return e.Color
	}
	return "#FFFFFF"
}

// EntriesFor filters the catalog to one category, preserving order.
func EntriesFor(cat Category) []CatalogEntry {
	var out []CatalogEntry
	for _, e := range Catalog {
		if e.Category == cat {
			out = append(out, e)
		}
	}
	return out
}

// ParseCondition resolves a catalog key into its typed condition.
func ParseCondition(key string) (Condition, error) {
	e, ok := catalogIndex[key]
	if !ok {
		return nil, fmt.Errorf("unknown condition %q", key)
	}
	return e.Condition(), nil
}

// Mode is the active edit granularity.
type Mode string

const (
	ModeSurface Mode = "surface"
	ModeWhole   Mode = "whole"
)

// Category is the condition category selectable in this mode.
func (m Mode) Category() Category {
	if m == ModeWhole {
		return CategoryWhole
	}
	return CategorySurface
}

// ParseMode accepts "surface" or "whole".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSurface, ModeWhole:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}
