package dentalchart

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/odontogram/internal/platform/db"
)

// stubTx satisfies pgx.Tx without a database; calling any method panics.
type stubTx struct{ pgx.Tx }

func TestChartRepoPG_ConnUsesPoolOutsideTransaction(t *testing.T) {
	r := &chartRepoPG{}
	if _, ok := r.conn(context.Background()).(*pgxpool.Pool); !ok {
		t.Errorf("expected the pool, got %T", r.conn(context.Background()))
	}
}

func TestChartRepoPG_ConnJoinsTransaction(t *testing.T) {
	r := &chartRepoPG{}
	ctx := db.WithTx(context.Background(), stubTx{})
	if _, ok := r.conn(ctx).(stubTx); !ok {
		t.Errorf("expected the context transaction, got %T", r.conn(ctx))
	}
}
