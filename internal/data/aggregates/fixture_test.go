package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	repotest "github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

type tripFixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	set      repos.Set
	hooks    *spyHooks
	company  *identity.Company
	operator *identity.User
	guard    *identity.User
}

func newTripFixture(t *testing.T, operatorCoins int64) *tripFixture {
	t.Helper()
	db := repotest.DB(t)
	ctx := context.Background()
	log := repotest.Logger(t)
	company := repotest.SeedCompany(t, ctx, db, "Acme Freight", nil)
	operator := repotest.SeedUser(t, ctx, db, "operator@acme.test", repotest.UserOpts{
		Role: identity.RoleEmployee, SubRole: identity.SubRoleOperator, CompanyID: &company.ID, Coins: operatorCoins,
	})
	guard := repotest.SeedUser(t, ctx, db, "guard@acme.test", repotest.UserOpts{
		Role: identity.RoleEmployee, SubRole: identity.SubRoleGuard, CompanyID: &company.ID,
	})
	return &tripFixture{
		t: t, ctx: ctx, db: db,
		set:      repos.NewSet(db, log),
		hooks:    &spyHooks{},
		company:  company,
		operator: operator,
		guard:    guard,
	}
}

func (f *tripFixture) base() BaseDeps {
	return BaseDeps{DB: f.db, Log: repotest.Logger(f.t), Hooks: f.hooks}
}

func (f *tripFixture) sessionDeps(strict bool) SessionAggregateDeps {
	return SessionAggregateDeps{
		Base:             f.base(),
		Sessions:         f.set.Sessions,
		Seals:            f.set.Seals,
		SealTags:         f.set.SealTags,
		GuardTags:        f.set.GuardSealTags,
		Users:            f.set.Users,
		CoinTxns:         f.set.CoinTxns,
		Logs:             f.set.ActivityLogs,
		Ledger:           fieldledger.NewRecorder(f.set.FieldTimestamps, repotest.Logger(f.t), nil),
		StrictSealGating: strict,
	}
}

func (f *tripFixture) sessions(strict bool) *sessionAggregate {
	return NewSessionAggregate(f.sessionDeps(strict)).(*sessionAggregate)
}

func (f *tripFixture) scans() *sealScanAggregate {
	return NewSealScanAggregate(SealScanAggregateDeps{
		Base:      f.base(),
		Sessions:  f.set.Sessions,
		SealTags:  f.set.SealTags,
		GuardTags: f.set.GuardSealTags,
		Logs:      f.set.ActivityLogs,
	}).(*sealScanAggregate)
}

func (f *tripFixture) dbc() dbctx.Context { return dbctx.Context{Ctx: f.ctx} }

func (f *tripFixture) coinsOf(id uuid.UUID) int64 {
	f.t.Helper()
	u, err := f.set.Users.GetByID(f.dbc(), id)
	if err != nil || u == nil {
		f.t.Fatalf("load user %s: %v", id, err)
	}
	return u.Coins
}

func (f *tripFixture) count(model any, where string, args ...any) int64 {
	f.t.Helper()
	var n int64
	if err := f.db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		f.t.Fatalf("count: %v", err)
	}
	return n
}

func (f *tripFixture) logsFor(sessionID uuid.UUID, action string) []*audit.ActivityLog {
	f.t.Helper()
	logs, err := f.set.ActivityLogs.ListByTarget(f.dbc(), sessionID, []string{action}, 0)
	if err != nil {
		f.t.Fatalf("list logs: %v", err)
	}
	return logs
}

func (f *tripFixture) ledger(sessionID uuid.UUID) map[string]*trip.FieldTimestamp {
	f.t.Helper()
	rows, err := f.set.FieldTimestamps.ListBySessionID(f.dbc(), sessionID)
	if err != nil {
		f.t.Fatalf("list ledger: %v", err)
	}
	out := map[string]*trip.FieldTimestamp{}
	for _, r := range rows {
		out[r.FieldName] = r
	}
	return out
}

// failingLogs fails every activity log insert.
type failingLogs struct {
	repos.ActivityLogRepo
}

func (failingLogs) Create(dbctx.Context, []*audit.ActivityLog) ([]*audit.ActivityLog, error) {
	return nil, errors.New("activity log unavailable")
}

// failingLedger fails every provenance upsert.
type failingLedger struct {
	repos.FieldTimestampRepo
}

func (failingLedger) Upsert(dbctx.Context, []*trip.FieldTimestamp) error {
	return errors.New("ledger unavailable")
}
