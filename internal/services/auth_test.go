package services

import (
	"testing"
	"time"

	repotest "github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/ctxutil"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

func TestLoginIssuesVerifiableToken(t *testing.T) {
	f := newSvcFixture(t, 0)
	hashed, err := HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u := repotest.SeedUser(t, f.ctx, f.db, "login@acme.test", repotest.UserOpts{
		Role: identity.RoleEmployee, SubRole: identity.SubRoleGuard, CompanyID: &f.company.ID, Password: hashed,
	})
	auth := NewAuthService(repotest.Logger(t), f.set.Users, f.set.ActivityLogs, "test-secret", time.Hour)
	dbc := dbctx.Context{Ctx: f.ctx}

	tok, got, err := auth.Login(dbc, " LOGIN@acme.test ", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("user: want=%s got=%s", u.ID, got.ID)
	}
	ctx, err := auth.SetContextFromToken(f.ctx, tok)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID != u.ID || rd.SubRole != string(identity.SubRoleGuard) {
		t.Fatalf("request data: %+v", rd)
	}
	if rd.CompanyID == nil || *rd.CompanyID != f.company.ID {
		t.Fatalf("company claim: %+v", rd.CompanyID)
	}
	logs, err := f.set.ActivityLogs.ListByTarget(dbc, u.ID, []string{audit.ActionLogin}, 0)
	if err != nil || len(logs) != 1 {
		t.Fatalf("login log: n=%d err=%v", len(logs), err)
	}

	if _, _, err := auth.Login(dbc, "login@acme.test", "wrong"); !apierr.IsCode(err, apierr.CodeUnauthenticated) {
		t.Fatalf("wrong password: want=unauthenticated got=%v", err)
	}
	if _, _, err := auth.Login(dbc, "nobody@acme.test", "correct-horse"); !apierr.IsCode(err, apierr.CodeUnauthenticated) {
		t.Fatalf("unknown user: want=unauthenticated got=%v", err)
	}
	if _, _, err := auth.Login(dbc, "", ""); !apierr.IsCode(err, apierr.CodeValidation) {
		t.Fatalf("empty credentials: want=validation got=%v", err)
	}

	other := NewAuthService(repotest.Logger(t), f.set.Users, f.set.ActivityLogs, "other-secret", time.Hour)
	if _, err := other.SetContextFromToken(f.ctx, tok); !apierr.IsCode(err, apierr.CodeUnauthenticated) {
		t.Fatalf("foreign signature: want=unauthenticated got=%v", err)
	}
	if _, err := auth.SetContextFromToken(f.ctx, tok+"x"); !apierr.IsCode(err, apierr.CodeUnauthenticated) {
		t.Fatalf("tampered token: want=unauthenticated got=%v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	f := newSvcFixture(t, 0)
	svc := NewAuthService(repotest.Logger(t), f.set.Users, f.set.ActivityLogs, "test-secret", time.Minute).(*authService)
	tok, err := svc.IssueToken(f.guard)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.SetContextFromToken(f.ctx, tok); !apierr.IsCode(err, apierr.CodeUnauthenticated) {
		t.Fatalf("expired: want=unauthenticated got=%v", err)
	}
}
