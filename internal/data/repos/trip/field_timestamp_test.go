package trip

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

func TestFieldTimestampUpsertNeverMovesBackwards(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewFieldTimestampRepo(db, testutil.Logger(t))
	sessionID := uuid.New()
	first, second := uuid.New(), uuid.New()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	if err := repo.Upsert(dbc, []*types.FieldTimestamp{{SessionID: sessionID, FieldName: "loadingDetails.driverName", UpdatedAt: t1, UpdatedByID: second}}); err != nil {
		t.Fatalf("Upsert t1: %v", err)
	}
	if err := repo.Upsert(dbc, []*types.FieldTimestamp{{SessionID: sessionID, FieldName: "loadingDetails.driverName", UpdatedAt: t0, UpdatedByID: first}}); err != nil {
		t.Fatalf("Upsert t0: %v", err)
	}

	rows, err := repo.ListBySessionID(dbc, sessionID)
	if err != nil {
		t.Fatalf("ListBySessionID: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows: want=1 got=%d", len(rows))
	}
	if !rows[0].UpdatedAt.Equal(t1) || rows[0].UpdatedByID != second {
		t.Fatalf("ledger moved backwards: got=%s by %s", rows[0].UpdatedAt, rows[0].UpdatedByID)
	}

	t2 := t1.Add(time.Minute)
	if err := repo.Upsert(dbc, []*types.FieldTimestamp{{SessionID: sessionID, FieldName: "loadingDetails.driverName", UpdatedAt: t2, UpdatedByID: first}}); err != nil {
		t.Fatalf("Upsert t2: %v", err)
	}
	rows, err = repo.GetByFieldNames(dbc, sessionID, []string{"loadingDetails.driverName"})
	if err != nil {
		t.Fatalf("GetByFieldNames: %v", err)
	}
	if len(rows) != 1 || !rows[0].UpdatedAt.Equal(t2) || rows[0].UpdatedByID != first {
		t.Fatalf("ledger did not advance: %+v", rows)
	}
}
