package dentalchart

import (
	"fmt"
	"time"
)

// Action is a chart mutation. Only the types in this file implement it.
type Action interface {
	tooth() int
	isAction()
}

// ApplySurface toggles Condition on one surface of a tooth.
type ApplySurface struct {
	Tooth     int
	Surface   Surface
	Condition SurfaceCondition
}

// ApplyWhole toggles a whole-tooth condition.
type ApplyWhole struct {
	Tooth     int
	Condition WholeCondition
}

// SetMobility sets the mobility grade.
type SetMobility struct {
	Tooth    int
	Mobility int
}

// SetNote replaces the free-text note.
type SetNote struct {
	Tooth int
	Note  string
}

// ResetTooth returns a tooth to baseline.
type ResetTooth struct {
	Tooth int
}

func (a ApplySurface) tooth() int { return a.Tooth }
func (a ApplyWhole) tooth() int   { return a.Tooth }
func (a SetMobility) tooth() int  { return a.Tooth }
func (a SetNote) tooth() int      { return a.Tooth }
func (a ResetTooth) tooth() int   { return a.Tooth }

func (ApplySurface) isAction() {}
func (ApplyWhole) isAction()   {}
func (SetMobility) isAction()  {}
func (SetNote) isAction()      {}
func (ResetTooth) isAction()   {}

// ChangeKind names which persistence callback a change maps to.
type ChangeKind string

const (
	ChangeSurface  ChangeKind = "surface"
	ChangeWhole    ChangeKind = "whole"
	ChangeMobility ChangeKind = "mobility"
	ChangeNote     ChangeKind = "note"
	ChangeReset    ChangeKind = "reset"
)

// Change is the outcome of an accepted action, carrying the values the
// tooth ended up with.
type Change struct {
	Kind      ChangeKind
	Tooth     int
	Surface   Surface
	Condition SurfaceCondition
	Whole     WholeCondition
	Mobility  int
	Note      string
	Entry     HistoryEntry
}

// Reduce applies a to a copy of state. Every accepted action appends exactly
// one history entry, including toggles that clear a value. Rejected actions
// return state unchanged with an error.
func Reduce(state ChartState, a Action, at time.Time) (ChartState, Change, error) {
	id := a.tooth()
	if id < 1 || id > ToothCount {
		return state, Change{}, fmt.Errorf("%w: %d", ErrUnknownTooth, id)
	}
	next := state.Clone()
	rec := &next.Teeth[id-1]
	ch := Change{Tooth: id}
	var desc string

	switch a := a.(type) {
	case ApplySurface:
		if !a.Surface.Valid() {
			return state, Change{}, fmt.Errorf("%w: %d", ErrInvalidSurface, int(a.Surface))
		}
		if !a.Condition.Valid() {
			return state, Change{}, fmt.Errorf("%w: %q", ErrConditionCategory, a.Condition)
		}
		if rec.IsMissing() {
			return state, Change{}, fmt.Errorf("tooth %s: %w", ToDisplay(id), ErrToothMissing)
		}
		prev := rec.Surfaces[a.Surface]
		val := a.Condition
		if prev == val {
			val = Healthy
		}
		rec.Surfaces[a.Surface] = val
		ch.Kind, ch.Surface, ch.Condition = ChangeSurface, a.Surface, val
		desc = describe(a.Surface.String(), Label(prev), Label(val), prev == Healthy, val == Healthy)

	case ApplyWhole:
		if a.Condition == WholeNone || !a.Condition.Valid() {
			return state, Change{}, fmt.Errorf("%w: %q", ErrConditionCategory, a.Condition)
		}
		prev := rec.WholeCondition
		val := a.Condition
		if prev == val {
			val = WholeNone
		}
		rec.WholeCondition = val
		ch.Kind, ch.Whole = ChangeWhole, val
		desc = describe("whole", Label(prev), Label(val), prev == WholeNone, val == WholeNone)

	case SetMobility:
		if a.Mobility < 0 || a.Mobility > MaxMobility {
			return state, Change{}, fmt.Errorf("%w: %d", ErrInvalidMobility, a.Mobility)
		}
		prev := rec.Mobility
		rec.Mobility = a.Mobility
		ch.Kind, ch.Mobility = ChangeMobility, a.Mobility
		desc = fmt.Sprintf("mobility: %d (was %d)", a.Mobility, prev)

	case SetNote:
		rec.Note = a.Note
		ch.Kind, ch.Note = ChangeNote, a.Note
		desc = "note updated"
		if a.Note == "" {
			desc = "note cleared"
		}

	case ResetTooth:
		*rec = NewToothRecord()
		ch.Kind = ChangeReset
		ch.Condition = Healthy
		desc = "reset"

	default:
		return state, Change{}, fmt.Errorf("unsupported action %T", a)
	}

	ch.Entry = HistoryEntry{ToothID: ToDisplay(id), Description: desc, Timestamp: at}
	next.History = append(next.History, ch.Entry)
	return next, ch, nil
}

// describe builds the history text for a toggle on a named target.
func describe(target, prevLabel, nextLabel string, prevBaseline, nextBaseline bool) string {
	switch {
	case nextBaseline && prevBaseline:
		return target + ": cleared"
	case nextBaseline:
		return fmt.Sprintf("%s: cleared (was %s)", target, prevLabel)
	case prevBaseline:
		return fmt.Sprintf("%s: %s", target, nextLabel)
	default:
		return fmt.Sprintf("%s: %s (was %s)", target, nextLabel, prevLabel)
	}
}
