package dentalchart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/odontogram/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type chartRepoPG struct{ pool *pgxpool.Pool }

func NewChartRepoPG(pool *pgxpool.Pool) ChartRepository {
	return &chartRepoPG{pool: pool}
}

func (r *chartRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const toothCols = `tooth_id, whole_condition, buccal, lingual, mesial, distal, occlusal, mobility, note`

func scanTooth(row pgx.Row) (toothRow, error) {
	var t toothRow
	err := row.Scan(&t.ToothID, &t.Whole,
		&t.Surfaces[Buccal], &t.Surfaces[Lingual], &t.Surfaces[Mesial], &t.Surfaces[Distal], &t.Surfaces[Occlusal],
		&t.Mobility, &t.Note)
	return t, err
}

func (r *chartRepoPG) LoadChart(ctx context.Context, patientID uuid.UUID) (ChartState, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+toothCols+` FROM dental_chart_tooth WHERE patient_id = $1`, patientID)
	if err != nil {
		return ChartState{}, err
	}
	defer rows.Close()

	state := NewChartState()
	for rows.Next() {
		t, err := scanTooth(rows)
		if err != nil {
			return ChartState{}, err
		}
		if err := t.apply(&state); err != nil {
			return ChartState{}, err
		}
	}
	return state, rows.Err()
}

// SaveChart replaces every stored tooth of the patient. Baseline teeth are
// not written.
func (r *chartRepoPG) SaveChart(ctx context.Context, patientID uuid.UUID, state ChartState) error {
	return db.InTx(ctx, r.pool, func(ctx context.Context) error {
		c := r.conn(ctx)
		if _, err := c.Exec(ctx, `DELETE FROM dental_chart_tooth WHERE patient_id = $1`, patientID); err != nil {
			return err
		}
		for i, rec := range state.Teeth {
			if rec.IsBaseline() {
				continue
			}
			t := rowFromRecord(ToDisplay(i+1), rec)
			_, err := c.Exec(ctx, `
				INSERT INTO dental_chart_tooth (patient_id, `+toothCols+`)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				patientID, t.ToothID, t.Whole,
				t.Surfaces[Buccal], t.Surfaces[Lingual], t.Surfaces[Mesial], t.Surfaces[Distal], t.Surfaces[Occlusal],
				t.Mobility, t.Note)
			if err != nil {
				return fmt.Errorf("save tooth %s: %w", t.ToothID, err)
			}
		}
		return nil
	})
}

func (r *chartRepoPG) UpsertSurface(ctx context.Context, patientID uuid.UUID, toothID string, surface Surface, condition SurfaceCondition) error {
	col, err := surfaceColumn(surface)
	if err != nil {
		return err
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO dental_chart_tooth (patient_id, tooth_id, `+col+`)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, tooth_id) DO UPDATE SET `+col+` = EXCLUDED.`+col+`, updated_at = NOW()`,
		patientID, toothID, string(condition))
	return err
}

func (r *chartRepoPG) UpsertWhole(ctx context.Context, patientID uuid.UUID, toothID string, condition WholeCondition) error {
	var whole *string
	if condition != WholeNone {
		w := string(condition)
		whole = &w
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dental_chart_tooth (patient_id, tooth_id, whole_condition)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, tooth_id) DO UPDATE SET whole_condition = EXCLUDED.whole_condition, updated_at = NOW()`,
		patientID, toothID, whole)
	return err
}

func (r *chartRepoPG) UpsertMobility(ctx context.Context, patientID uuid.UUID, toothID string, mobility int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dental_chart_tooth (patient_id, tooth_id, mobility)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, tooth_id) DO UPDATE SET mobility = EXCLUDED.mobility, updated_at = NOW()`,
		patientID, toothID, mobility)
	return err
}

func (r *chartRepoPG) UpsertNote(ctx context.Context, patientID uuid.UUID, toothID string, note string) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dental_chart_tooth (patient_id, tooth_id, note)
		VALUES ($1, $2, $3)
		ON CONFLICT (patient_id, tooth_id) DO UPDATE SET note = EXCLUDED.note, updated_at = NOW()`,
		patientID, toothID, note)
	return err
}

func (r *chartRepoPG) ResetTooth(ctx context.Context, patientID uuid.UUID, toothID string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM dental_chart_tooth WHERE patient_id = $1 AND tooth_id = $2`, patientID, toothID)
	return err
}

func (r *chartRepoPG) AppendEvent(ctx context.Context, patientID uuid.UUID, entry HistoryEntry) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO dental_chart_event (id, patient_id, tooth_id, description, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), patientID, entry.ToothID, entry.Description, entry.Timestamp)
	return err
}

// ListEvents returns the newest events first.
func (r *chartRepoPG) ListEvents(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]HistoryEntry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM dental_chart_event WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT tooth_id, description, recorded_at FROM dental_chart_event
		WHERE patient_id = $1 ORDER BY recorded_at DESC, seq DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ToothID, &h.Description, &h.Timestamp); err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *chartRepoPG) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
