package dentalchart

import (
	"fmt"
	"strconv"
	"strings"
)

// NoSurface marks an empty surface selection.
const NoSurface Surface = -1

// UIState is the transient editor state that never reaches persistence.
// SelectedTooth is 0 when nothing is selected.
type UIState struct {
	SelectedTooth   int       `json:"selected_tooth"`
	SelectedSurface Surface   `json:"-"`
	Mode            Mode      `json:"mode"`
	Active          Condition `json:"-"`
}

// NewUIState starts in surface mode on the first surface finding.
func NewUIState() UIState {
	return UIState{SelectedSurface: NoSurface, Mode: ModeSurface, Active: firstOf(CategorySurface)}
}

func firstOf(cat Category) Condition {
	entries := EntriesFor(cat)
	if len(entries) == 0 {
		return nil
	}
	return entries[0].Condition()
}

// WithMode switches mode. The active condition is kept only when it still
// belongs to the new mode's category.
func (u UIState) WithMode(m Mode) UIState {
	u.Mode = m
	if u.Active == nil || u.Active.Category() != m.Category() {
		u.Active = firstOf(m.Category())
	}
	return u
}

// WithActive selects the condition for the next click.
func (u UIState) WithActive(c Condition) (UIState, error) {
	if c == nil || c.Category() != u.Mode.Category() {
		return u, fmt.Errorf("%w: %v not selectable in %s mode", ErrConditionCategory, c, u.Mode)
	}
	if _, ok := Lookup(c); !ok {
		return u, fmt.Errorf("%w: %q", ErrConditionCategory, c.Key())
	}
	u.Active = c
	return u, nil
}

// ClearSelection drops both the tooth and surface selection.
func (u UIState) ClearSelection() UIState {
	u.SelectedTooth = 0
	u.SelectedSurface = NoSurface
	return u
}

// HandleKey interprets a key press. It reports whether the state changed.
func (u UIState) HandleKey(key string) (UIState, bool) {
	if key == "Escape" || key == "esc" {
		return u.ClearSelection(), true
	}
	if len(key) != 1 || key[0] < '1' || key[0] > '5' || u.SelectedTooth == 0 {
		return u, false
	}
	s := Surfaces[key[0]-'1']
	if u.SelectedSurface == s {
		return u, false
	}
	u.SelectedSurface = s
	return u, true
}

// TargetKind classifies a clickable region.
type TargetKind string

const (
	TargetSurface   TargetKind = "surface"
	TargetTooth     TargetKind = "tooth"
	TargetMode      TargetKind = "mode"
	TargetCondition TargetKind = "cond"
	TargetMobility  TargetKind = "mobility"
	TargetReset     TargetKind = "reset"
)

// Target is a decoded region key.
type Target struct {
	Kind      TargetKind
	Tooth     int
	Surface   Surface
	Mode      Mode
	Condition Condition
	Mobility  int
}

// Key encodes the target as a region key.
func (t Target) Key() string {
	switch t.Kind {
	case TargetSurface:
		return fmt.Sprintf("surface:%d:%s", t.Tooth, t.Surface)
	case TargetTooth:
		return fmt.Sprintf("tooth:%d", t.Tooth)
	case TargetMode:
		return "mode:" + string(t.Mode)
	case TargetCondition:
		return "cond:" + t.Condition.Key()
	case TargetMobility:
		return "mobility:" + strconv.Itoa(t.Mobility)
	}
	return string(t.Kind)
}

// ParseTarget decodes a region key produced by Target.Key.
func ParseTarget(key string) (Target, error) {
	parts := strings.Split(key, ":")
	bad := fmt.Errorf("invalid region key %q", key)
	switch TargetKind(parts[0]) {
	case TargetSurface:
		if len(parts) != 3 {
			return Target{}, bad
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Target{}, bad
		}
		s, err := ParseSurface(parts[2])
		if err != nil {
			return Target{}, bad
		}
		return Target{Kind: TargetSurface, Tooth: id, Surface: s}, nil
	case TargetTooth:
		if len(parts) != 2 {
			return Target{}, bad
		}
		id, err := strconv.Atoi(parts[1])
		if err != nil {
			return Target{}, bad
		}
		return Target{Kind: TargetTooth, Tooth: id}, nil
	case TargetMode:
		if len(parts) != 2 {
			return Target{}, bad
		}
		m, err := ParseMode(parts[1])
		if err != nil {
			return Target{}, bad
		}
		return Target{Kind: TargetMode, Mode: m}, nil
	case TargetCondition:
		if len(parts) != 2 {
			return Target{}, bad
		}
		c, err := ParseCondition(parts[1])
		if err != nil {
			return Target{}, bad
		}
		return Target{Kind: TargetCondition, Condition: c}, nil
	case TargetMobility:
		if len(parts) != 2 {
			return Target{}, bad
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return Target{}, bad
		}
		return Target{Kind: TargetMobility, Mobility: n}, nil
	case TargetReset:
		if len(parts) != 1 {
			return Target{}, bad
		}
		return Target{Kind: TargetReset}, nil
	}
	return Target{}, bad
}

// Interpret decides what a click on t means under the current UI state. It
// returns the next UI state and the chart action to reduce, which is nil
// when the click only changes selection or toolbar state.
func Interpret(u UIState, t Target) (UIState, Action) {
	switch t.Kind {
	case TargetMode:
		return u.WithMode(t.Mode), nil
	case TargetCondition:
		next, err := u.WithActive(t.Condition)
		if err != nil {
			return u, nil
		}
		return next, nil
	case TargetMobility:
		if u.SelectedTooth == 0 {
			return u, nil
		}
		return u, SetMobility{Tooth: u.SelectedTooth, Mobility: t.Mobility}
	case TargetReset:
		if u.SelectedTooth == 0 {
			return u, nil
		}
		return u, ResetTooth{Tooth: u.SelectedTooth}
	}

	if t.Tooth < 1 || t.Tooth > ToothCount {
		return u, nil
	}
	if u.Mode == ModeWhole {
		u.SelectedTooth, u.SelectedSurface = t.Tooth, NoSurface
		wc, ok := u.Active.(WholeCondition)
		if !ok {
			return u, nil
		}
		return u, ApplyWhole{Tooth: t.Tooth, Condition: wc}
	}
	if t.Kind == TargetTooth {
		u.SelectedTooth, u.SelectedSurface = t.Tooth, NoSurface
		return u, nil
	}
	u.SelectedTooth, u.SelectedSurface = t.Tooth, t.Surface
	sc, ok := u.Active.(SurfaceCondition)
	if !ok {
		return u, nil
	}
	return u, ApplySurface{Tooth: t.Tooth, Surface: t.Surface, Condition: sc}
}
