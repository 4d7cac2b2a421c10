package dentalchart

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ChartRepository stores charts per patient. Tooth ids are FDI codes; the
// repository never sees internal numbering.
type ChartRepository interface {
	// LoadChart returns the stored teeth with an empty history. A patient
	// without rows gets an all-healthy chart.
	LoadChart(ctx context.Context, patientID uuid.UUID) (ChartState, error)
	SaveChart(ctx context.Context, patientID uuid.UUID, state ChartState) error
	UpsertSurface(ctx context.Context, patientID uuid.UUID, toothID string, surface Surface, condition SurfaceCondition) error
	UpsertWhole(ctx context.Context, patientID uuid.UUID, toothID string, condition WholeCondition) error
	UpsertMobility(ctx context.Context, patientID uuid.UUID, toothID string, mobility int) error
	UpsertNote(ctx context.Context, patientID uuid.UUID, toothID string, note string) error
	ResetTooth(ctx context.Context, patientID uuid.UUID, toothID string) error
	AppendEvent(ctx context.Context, patientID uuid.UUID, entry HistoryEntry) error
	ListEvents(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]HistoryEntry, int, error)
	Ping(ctx context.Context) error
}

// surfaceColumn names the column holding a surface. The set is closed, so
// the name is safe to splice into SQL.
func surfaceColumn(s Surface) (string, error) {
	if !s.Valid() {
		return "", ErrInvalidSurface
	}
	return s.String(), nil
}

// toothRow is the storage shape shared by both SQL backends.
type toothRow struct {
	ToothID  string
	Whole    *string
	Surfaces [surfaceCount]string
	Mobility int
	Note     string
}

func rowFromRecord(toothID string, rec ToothRecord) toothRow {
	row := toothRow{ToothID: toothID, Mobility: rec.Mobility, Note: rec.Note}
	if rec.WholeCondition != WholeNone {
		w := string(rec.WholeCondition)
		row.Whole = &w
	}
	for _, s := range Surfaces {
		row.Surfaces[s] = string(rec.Surfaces[s])
	}
	return row
}

// apply validates the row and writes it into state.
func (row toothRow) apply(state *ChartState) error {
	id, ok := LookupInternal(row.ToothID)
	if !ok {
		return errors.Join(ErrUnknownTooth, errors.New("stored tooth "+row.ToothID))
	}
	rec := NewToothRecord()
	if row.Whole != nil {
		rec.WholeCondition = WholeCondition(*row.Whole)
	}
	for _, s := range Surfaces {
		rec.Surfaces[s] = SurfaceCondition(row.Surfaces[s])
	}
	rec.Mobility, rec.Note = row.Mobility, row.Note
	if err := rec.Validate(); err != nil {
		return err
	}
	state.Teeth[id-1] = rec
	return nil
}
