package dentalchart

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS dental_chart_tooth (
	patient_id TEXT NOT NULL,
	tooth_id TEXT NOT NULL,
	whole_condition TEXT,
	buccal TEXT NOT NULL DEFAULT 'healthy',
	lingual TEXT NOT NULL DEFAULT 'healthy',
	mesial TEXT NOT NULL DEFAULT 'healthy',
	distal TEXT NOT NULL DEFAULT 'healthy',
	occlusal TEXT NOT NULL DEFAULT 'healthy',
	mobility INTEGER NOT NULL DEFAULT 0,
	note TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (patient_id, tooth_id)
);
CREATE TABLE IF NOT EXISTS dental_chart_event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	patient_id TEXT NOT NULL,
	tooth_id TEXT NOT NULL,
	description TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dental_chart_event_patient ON dental_chart_event (patient_id, seq);`

// SQLiteChartRepo keeps charts in a single local file. The terminal editor
// uses it when no Postgres server is configured.
type SQLiteChartRepo struct {
	db *sql.DB
}

// NewSQLiteChartRepo opens (creating if needed) the database at path.
func NewSQLiteChartRepo(ctx context.Context, path string) (*SQLiteChartRepo, error) {
	if path == "" {
		path = "odontogram.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; the engine's callbacks may race otherwise
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteChartRepo{db: conn}, nil
}

// Close releases the database handle.
func (r *SQLiteChartRepo) Close() error { return r.db.Close() }

func (r *SQLiteChartRepo) LoadChart(ctx context.Context, patientID uuid.UUID) (ChartState, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+toothCols+` FROM dental_chart_tooth WHERE patient_id = ?`, patientID.String())
	if err != nil {
		return ChartState{}, err
	}
	defer rows.Close()

	state := NewChartState()
	for rows.Next() {
		var t toothRow
		var whole sql.NullString
		if err := rows.Scan(&t.ToothID, &whole,
			&t.Surfaces[Buccal], &t.Surfaces[Lingual], &t.Surfaces[Mesial], &t.Surfaces[Distal], &t.Surfaces[Occlusal],
			&t.Mobility, &t.Note); err != nil {
			return ChartState{}, err
		}
		if whole.Valid {
			t.Whole = &whole.String
		}
		if err := t.apply(&state); err != nil {
			return ChartState{}, err
		}
	}
	return state, rows.Err()
}

func (r *SQLiteChartRepo) SaveChart(ctx context.Context, patientID uuid.UUID, state ChartState) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dental_chart_tooth WHERE patient_id = ?`, patientID.String()); err != nil {
		return err
	}
	for i, rec := range state.Teeth {
		if rec.IsBaseline() {
			continue
		}
		t := rowFromRecord(ToDisplay(i+1), rec)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dental_chart_tooth (patient_id, `+toothCols+`)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			patientID.String(), t.ToothID, t.Whole,
			t.Surfaces[Buccal], t.Surfaces[Lingual], t.Surfaces[Mesial], t.Surfaces[Distal], t.Surfaces[Occlusal],
			t.Mobility, t.Note)
		if err != nil {
			return fmt.Errorf("save tooth %s: %w", t.ToothID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteChartRepo) upsert(ctx context.Context, patientID uuid.UUID, toothID, col string, val any) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dental_chart_tooth (patient_id, tooth_id, `+col+`)
		VALUES (?, ?, ?)
		ON CONFLICT (patient_id, tooth_id) DO UPDATE SET `+col+` = excluded.`+col+`, updated_at = CURRENT_TIMESTAMP`,
		patientID.String(), toothID, val)
	return err
}

func (r *SQLiteChartRepo) UpsertSurface(ctx context.Context, patientID uuid.UUID, toothID string, surface Surface, condition SurfaceCondition) error {
	col, err := surfaceColumn(surface)
	if err != nil {
		return err
	}
	return r.upsert(ctx, patientID, toothID, col, string(condition))
}

func (r *SQLiteChartRepo) UpsertWhole(ctx context.Context, patientID uuid.UUID, toothID string, condition WholeCondition) error {
	var whole sql.NullString
	if condition != WholeNone {
		whole = sql.NullString{String: string(condition), Valid: true}
	}
	return r.upsert(ctx, patientID, toothID, "whole_condition", whole)
}

func (r *SQLiteChartRepo) UpsertMobility(ctx context.Context, patientID uuid.UUID, toothID string, mobility int) error {
	return r.upsert(ctx, patientID, toothID, "mobility", mobility)
}

func (r *SQLiteChartRepo) UpsertNote(ctx context.Context, patientID uuid.UUID, toothID string, note string) error {
	return r.upsert(ctx, patientID, toothID, "note", note)
}

func (r *SQLiteChartRepo) ResetTooth(ctx context.Context, patientID uuid.UUID, toothID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM dental_chart_tooth WHERE patient_id = ? AND tooth_id = ?`, patientID.String(), toothID)
	return err
}

func (r *SQLiteChartRepo) AppendEvent(ctx context.Context, patientID uuid.UUID, entry HistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dental_chart_event (id, patient_id, tooth_id, description, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), patientID.String(), entry.ToothID, entry.Description, entry.Timestamp.UTC().Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteChartRepo) ListEvents(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]HistoryEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dental_chart_event WHERE patient_id = ?`, patientID.String()).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT tooth_id, description, recorded_at FROM dental_chart_event
		WHERE patient_id = ? ORDER BY seq DESC LIMIT ? OFFSET ?`,
		patientID.String(), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var at string
		if err := rows.Scan(&h.ToothID, &h.Description, &at); err != nil {
			return nil, 0, err
		}
		if h.Timestamp, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, 0, fmt.Errorf("parse event time: %w", err)
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *SQLiteChartRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
