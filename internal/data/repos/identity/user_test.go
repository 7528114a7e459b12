package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*types.User{{
		Name:     "Op",
		Email:    " Operator@Example.com ",
		Password: "pw",
		Role:     types.RoleEmployee,
		SubRole:  types.SubRoleOperator,
		Coins:    2,
	}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected generated id")
	}

	got, err := repo.GetByEmail(dbc, "operator@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got == nil || got.ID != created[0].ID {
		t.Fatalf("GetByEmail: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: want=nil,nil got=%v,%v", missing, err)
	}

	ok, err := repo.DebitCoins(dbc, got.ID, 2)
	if err != nil || !ok {
		t.Fatalf("DebitCoins: want=true got=%v err=%v", ok, err)
	}
	ok, err = repo.DebitCoins(dbc, got.ID, 1)
	if err != nil {
		t.Fatalf("DebitCoins: %v", err)
	}
	if ok {
		t.Fatalf("DebitCoins: expected insufficient balance")
	}
	if err := repo.CreditCoins(dbc, got.ID, 3); err != nil {
		t.Fatalf("CreditCoins: %v", err)
	}
	after, err := repo.LockByID(dbc, got.ID)
	if err != nil {
		t.Fatalf("LockByID: %v", err)
	}
	if after.Coins != 3 {
		t.Fatalf("coins: want=3 got=%d", after.Coins)
	}
	if err := repo.CreditCoins(dbc, uuid.New(), 1); err == nil {
		t.Fatalf("CreditCoins: expected error for unknown user")
	}
}

func TestOperatorPermissionsUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	u := testutil.SeedUser(t, ctx, tx, "op@example.com", testutil.UserOpts{SubRole: types.SubRoleOperator})
	repo := NewOperatorPermissionsRepo(db, testutil.Logger(t))

	if err := repo.Upsert(dbc, &types.OperatorPermissions{UserID: u.ID, CanCreate: true}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, &types.OperatorPermissions{UserID: u.ID, CanCreate: true, CanModify: true}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	got, err := repo.GetByUserID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if got == nil || !got.CanCreate || !got.CanModify {
		t.Fatalf("GetByUserID: unexpected %+v", got)
	}
}
