package dentalchart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrUnknownTooth      = errors.New("unknown tooth")
	ErrToothMissing      = errors.New("tooth is missing")
	ErrInvalidMobility   = errors.New("mobility must be between 0 and 3")
	ErrConditionCategory = errors.New("condition category mismatch")
	ErrInvalidSurface    = errors.New("invalid surface")
	ErrDestroyed         = errors.New("chart engine destroyed")
)

// MaxMobility is the highest mobility grade.
const MaxMobility = 3

// SurfaceSet holds the condition of each of the five surfaces.
type SurfaceSet [surfaceCount]SurfaceCondition

// HealthySurfaces is the baseline surface set.
func HealthySurfaces() SurfaceSet {
	var s SurfaceSet
	for i := range s {
		s[i] = Healthy
	}
	return s
}

func (s SurfaceSet) Get(surface Surface) SurfaceCondition { return s[surface] }

func (s SurfaceSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]SurfaceCondition, surfaceCount)
	for _, sf := range Surfaces {
		m[sf.String()] = s[sf]
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts an object keyed by surface name. Absent surfaces
// stay healthy; unknown names and non-surface conditions are rejected.
func (s *SurfaceSet) UnmarshalJSON(b []byte) error {
	var m map[string]SurfaceCondition
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	out := HealthySurfaces()
	for name, cond := range m {
		sf, err := ParseSurface(name)
		if err != nil {
			return err
		}
		out[sf] = cond
	}
	*s = out
	return nil
}

// ToothRecord is the clinical state of one tooth slot.
type ToothRecord struct {
	WholeCondition WholeCondition `json:"whole_condition"`
	Surfaces       SurfaceSet     `json:"surfaces"`
	Mobility       int            `json:"mobility"`
	Note           string         `json:"note"`
}

// NewToothRecord returns a healthy, present tooth.
func NewToothRecord() ToothRecord {
	return ToothRecord{Surfaces: HealthySurfaces()}
}

// IsMissing reports whether the tooth is charted as missing.
func (r ToothRecord) IsMissing() bool { return r.WholeCondition == Missing }

// Status is the derived presence of the tooth.
func (r ToothRecord) Status() string {
	if r.IsMissing() {
		return "missing"
	}
	return "present"
}

// IsBaseline reports whether the record carries no findings at all.
func (r ToothRecord) IsBaseline() bool {
	return r.WholeCondition == WholeNone && r.Surfaces == HealthySurfaces() && r.Mobility == 0 && r.Note == ""
}

// Validate checks the record against the value domains.
func (r ToothRecord) Validate() error {
	if !r.WholeCondition.Valid() {
		return fmt.Errorf("%w: whole condition %q", ErrConditionCategory, r.WholeCondition)
	}
	for _, sf := range Surfaces {
		if !r.Surfaces[sf].Valid() {
			return fmt.Errorf("%w: %s condition %q", ErrConditionCategory, sf, r.Surfaces[sf])
		}
	}
	if r.Mobility < 0 || r.Mobility > MaxMobility {
		return ErrInvalidMobility
	}
	return nil
}

// HistoryEntry records one mutation. ToothID is the display code.
type HistoryEntry struct {
	ToothID     string    `json:"tooth_id"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChartState is the full chart: 32 fixed slots plus the session history.
// Slot i holds internal tooth id i+1.
type ChartState struct {
	Teeth   [ToothCount]ToothRecord
	History []HistoryEntry
}

// NewChartState returns a chart with every tooth healthy and no history.
func NewChartState() ChartState {
	var s ChartState
	for i := range s.Teeth {
		s.Teeth[i] = NewToothRecord()
	}
	return s
}

// Tooth returns the record of an internal id.
func (s *ChartState) Tooth(internal int) (ToothRecord, bool) {
	if internal < 1 || internal > ToothCount {
		return ToothRecord{}, false
	}
	return s.Teeth[internal-1], true
}

// Clone returns a copy that shares nothing with s.
func (s ChartState) Clone() ChartState {
	out := s
	out.History = append([]HistoryEntry(nil), s.History...)
	return out
}

// Validate checks every slot.
func (s ChartState) Validate() error {
	for i, t := range s.Teeth {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tooth %d: %w", i+1, err)
		}
	}
	return nil
}

type chartStateJSON struct {
	Teeth   map[string]ToothRecord `json:"teeth"`
	History []HistoryEntry         `json:"history"`
}

// MarshalJSON encodes teeth keyed by internal id.
func (s ChartState) MarshalJSON() ([]byte, error) {
	out := chartStateJSON{Teeth: make(map[string]ToothRecord, ToothCount), History: s.History}
	if out.History == nil {
		out.History = []HistoryEntry{}
	}
	for i, t := range s.Teeth {
		out.Teeth[strconv.Itoa(i+1)] = t
	}
	return json.Marshal(out)
}

// UnmarshalJSON fills absent teeth with healthy records and rejects ids
// outside 1..32.
func (s *ChartState) UnmarshalJSON(b []byte) error {
	var in chartStateJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := NewChartState()
	for key, rec := range in.Teeth {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 || id > ToothCount {
			return fmt.Errorf("%w: %q", ErrUnknownTooth, key)
		}
		if rec.Surfaces == (SurfaceSet{}) {
			rec.Surfaces = HealthySurfaces()
		}
		out.Teeth[id-1] = rec
	}
	out.History = in.History
	*s = out
	return nil
}
