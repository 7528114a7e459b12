package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/aggregates"
	"github.com/yungbote/tripseal-backend/internal/data/repos"
	repotest "github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
	"github.com/yungbote/tripseal-backend/internal/media"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/ctxutil"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/realtime"
	"github.com/yungbote/tripseal-backend/internal/realtime/bus"
)

// A one-pixel PNG header is enough for content sniffing.
const pngBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

type svcFixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	set repos.Set

	access   AccessService
	sessions SessionService
	seals    SealService
	coins    CoinService
	users    UserService
	comments CommentService
	reports  ReportService

	eventsMu sync.Mutex
	events   []realtime.SSEMessage

	admin    *types.User
	company  *types.Company
	operator *types.User
	guard    *types.User
}

func newSvcFixture(t *testing.T, operatorCoins int64) *svcFixture {
	t.Helper()
	db := repotest.DB(t)
	ctx := context.Background()
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)

	f := &svcFixture{t: t, ctx: ctx, db: db, set: set}

	b := bus.NewLocalBus()
	if err := b.StartForwarder(ctx, func(m realtime.SSEMessage) {
		f.eventsMu.Lock()
		f.events = append(f.events, m)
		f.eventsMu.Unlock()
	}); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	notifier := NewTripNotifier(log, b, observability.NewMetrics(nil))

	base := aggregates.BaseDeps{DB: db, Log: log}
	sessionAgg := aggregates.NewSessionAggregate(aggregates.SessionAggregateDeps{
		Base:      base,
		Sessions:  set.Sessions,
		Seals:     set.Seals,
		SealTags:  set.SealTags,
		GuardTags: set.GuardSealTags,
		Users:     set.Users,
		CoinTxns:  set.CoinTxns,
		Logs:      set.ActivityLogs,
		Ledger:    fieldledger.NewRecorder(set.FieldTimestamps, log, nil),
	})
	scanAgg := aggregates.NewSealScanAggregate(aggregates.SealScanAggregateDeps{
		Base:      base,
		Sessions:  set.Sessions,
		SealTags:  set.SealTags,
		GuardTags: set.GuardSealTags,
		Logs:      set.ActivityLogs,
	})
	coinAgg := aggregates.NewCoinAggregate(aggregates.CoinAggregateDeps{Base: base, Users: set.Users, Txns: set.CoinTxns})
	resolver, err := fieldledger.NewResolver(nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	images := media.NewProcessor(log, nil, media.Config{})

	f.access = NewAccessService(log, set)
	f.sessions = NewSessionService(log, set, f.access, sessionAgg, images, resolver, notifier)
	f.seals = NewSealService(log, set, f.access, scanAgg, sessionAgg, images, resolver, notifier)
	f.coins = NewCoinService(log, set, f.access, coinAgg, notifier)
	f.users = NewUserService(db, log, set, f.access)
	f.comments = NewCommentService(db, log, set, f.access, notifier)
	f.reports = NewReportService(log, set, f.access, sessionAgg, resolver)

	f.admin = repotest.SeedUser(t, ctx, db, "admin@acme.test", repotest.UserOpts{Role: identity.RoleAdmin, Coins: 20})
	f.company = repotest.SeedCompany(t, ctx, db, "Acme Freight", &f.admin.ID)
	f.operator = repotest.SeedUser(t, ctx, db, "operator@acme.test", repotest.UserOpts{
		Role: identity.RoleEmployee, SubRole: identity.SubRoleOperator, CompanyID: &f.company.ID,
		CreatedByID: &f.admin.ID, Coins: operatorCoins,
	})
	repotest.SeedOperatorPermissions(t, ctx, db, f.operator.ID, true, true)
	f.guard = repotest.SeedUser(t, ctx, db, "guard@acme.test", repotest.UserOpts{
		Role: identity.RoleEmployee, SubRole: identity.SubRoleGuard, CompanyID: &f.company.ID,
	})
	return f
}

// as returns a request context authenticated as u.
func (f *svcFixture) as(u *types.User) dbctx.Context {
	rd := &ctxutil.RequestData{UserID: u.ID, Role: string(u.Role), SubRole: string(u.SubRole), CompanyID: u.CompanyID}
	return dbctx.Context{Ctx: ctxutil.WithRequestData(f.ctx, rd)}
}

func (f *svcFixture) coinsOf(id uuid.UUID) int64 {
	f.t.Helper()
	u, err := f.set.Users.GetByID(dbctx.Context{Ctx: f.ctx}, id)
	if err != nil || u == nil {
		f.t.Fatalf("load user %s: %v", id, err)
	}
	return u.Coins
}

func (f *svcFixture) eventsOf(event realtime.SSEEvent) []realtime.SSEMessage {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	var out []realtime.SSEMessage
	for _, m := range f.events {
		if m.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (f *svcFixture) createSession(op *types.User) *CreateSessionResponse {
	f.t.Helper()
	res, err := f.sessions.Create(f.as(op), CreateSessionRequest{
		Source:      "Mine A",
		Destination: "Plant B",
		TripDetails: map[string]any{
			"loadingDetails": map[string]any{"vehicleNumber": "MH12AB1234", "grossWeight": 25.5},
			"driverName":     "Ravi",
		},
		SealTags: []SealTagRequest{
			{Barcode: "SEAL-001", Method: "scanned"},
			{Barcode: "SEAL-002", Method: "manual", Image: pngBase64},
		},
		Images: map[string]any{"vehicleImages": []any{"https://cdn.test/v1.jpg", pngBase64}},
	})
	if err != nil {
		f.t.Fatalf("Create: %v", err)
	}
	return res
}
