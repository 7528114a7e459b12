package trip

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

func TestSessionRepoListHonoursScope(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	companyA, companyB := uuid.New(), uuid.New()
	creator := uuid.New()
	sA := testutil.SeedSession(t, ctx, tx, companyA, uuid.New(), types.SessionInProgress)
	sB := testutil.SeedSession(t, ctx, tx, companyB, creator, types.SessionCompleted)
	testutil.SeedSession(t, ctx, tx, uuid.New(), uuid.New(), types.SessionInProgress)

	repo := NewSessionRepo(db, testutil.Logger(t))

	all, total, err := repo.List(dbc, SessionScope{All: true}, SessionListOptions{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Fatalf("List all: want=3 got=%d/%d", total, len(all))
	}

	scoped, total, err := repo.List(dbc, SessionScope{CompanyIDs: []uuid.UUID{companyA}, CreatorIDs: []uuid.UUID{creator}}, SessionListOptions{})
	if err != nil {
		t.Fatalf("List scoped: %v", err)
	}
	if total != 2 || len(scoped) != 2 {
		t.Fatalf("List scoped: want=2 got=%d/%d", total, len(scoped))
	}
	seen := map[uuid.UUID]bool{}
	for _, s := range scoped {
		seen[s.ID] = true
	}
	if !seen[sA.ID] || !seen[sB.ID] {
		t.Fatalf("List scoped: unexpected sessions %v", seen)
	}

	completed, _, err := repo.List(dbc, SessionScope{CompanyIDs: []uuid.UUID{companyA, companyB}}, SessionListOptions{Status: string(types.SessionCompleted)})
	if err != nil {
		t.Fatalf("List status: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != sB.ID {
		t.Fatalf("List status: unexpected %+v", completed)
	}

	empty, total, err := repo.List(dbc, SessionScope{}, SessionListOptions{})
	if err != nil || total != 0 || len(empty) != 0 {
		t.Fatalf("List empty scope: want none got=%d err=%v", len(empty), err)
	}
}
