package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

type fixture struct {
	superAdmin, admin, otherAdmin uuid.UUID
	companyRow, companyUser       uuid.UUID
	otherCompany                  uuid.UUID
	operator, guard, driver       uuid.UUID
	session                       *SessionFacts
}

func newFixture() fixture {
	f := fixture{
		superAdmin:   uuid.New(),
		admin:        uuid.New(),
		otherAdmin:   uuid.New(),
		companyRow:   uuid.New(),
		companyUser:  uuid.New(),
		otherCompany: uuid.New(),
		operator:     uuid.New(),
		guard:        uuid.New(),
		driver:       uuid.New(),
	}
	f.session = &SessionFacts{
		SessionID:           uuid.New(),
		CompanyID:           f.companyRow,
		CreatedByID:         f.operator,
		CompanyIdentities:   []uuid.UUID{f.companyRow},
		CompanyCreatedByIDs: []uuid.UUID{f.admin},
	}
	return f
}

func (f fixture) actor(id uuid.UUID, role identity.Role, sub identity.SubRole, company *uuid.UUID) Actor {
	return Actor{UserID: id, Role: role, SubRole: sub, CompanyID: company}
}

func TestCanReadMatrix(t *testing.T) {
	f := newFixture()
	cases := []struct {
		name  string
		actor Actor
		want  bool
		rule  string
	}{
		{"superadmin", f.actor(f.superAdmin, identity.RoleSuperAdmin, "", nil), true, "superadmin.any"},
		{"creating admin", f.actor(f.admin, identity.RoleAdmin, "", nil), true, "admin.created_company"},
		{"foreign admin", f.actor(f.otherAdmin, identity.RoleAdmin, "", nil), false, "ADMIN.deny"},
		{"company user by fk", f.actor(f.companyUser, identity.RoleCompany, "", ptr(f.companyRow)), true, "company.company_id"},
		{"company user foreign", f.actor(f.companyUser, identity.RoleCompany, "", ptr(f.otherCompany)), false, "COMPANY.deny"},
		{"operator creator", f.actor(f.operator, identity.RoleEmployee, identity.SubRoleOperator, ptr(f.otherCompany)), true, "employee.created_session"},
		{"driver same company", f.actor(f.driver, identity.RoleEmployee, identity.SubRoleDriver, ptr(f.companyRow)), true, "employee.same_company"},
		{"driver foreign", f.actor(f.driver, identity.RoleEmployee, identity.SubRoleDriver, ptr(f.otherCompany)), false, "EMPLOYEE.deny"},
		{"driver without company", f.actor(f.driver, identity.RoleEmployee, identity.SubRoleDriver, nil), false, "EMPLOYEE.deny"},
		{"guard same company", f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.companyRow)), true, "guard.same_company"},
		{"guard foreign", f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.otherCompany)), false, "EMPLOYEE/GUARD.deny"},
		{"guard no company", f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, nil), false, "guard.no_company"},
		{"unknown role", f.actor(uuid.New(), identity.Role("VISITOR"), "", nil), false, "unknown_role"},
		{"anonymous", Actor{}, false, "unauthenticated"},
	}
	for _, tc := range cases {
		got := CanRead(tc.actor, f.session)
		if got.Allowed != tc.want || got.Rule != tc.rule {
			t.Fatalf("%s: want=%v/%s got=%v/%s", tc.name, tc.want, tc.rule, got.Allowed, got.Rule)
		}
		if !got.Allowed && got.Reason == "" {
			t.Fatalf("%s: denial must carry a reason", tc.name)
		}
	}
}

func TestCanReadCompanyUserIDAsCompanyKey(t *testing.T) {
	f := newFixture()
	// Session keyed by the company user id rather than the company row.
	s := *f.session
	s.CompanyID = f.companyUser
	s.CompanyIdentities = []uuid.UUID{f.companyUser, f.companyRow}

	got := CanRead(f.actor(f.companyUser, identity.RoleCompany, "", nil), &s)
	if !got.Allowed || got.Rule != "company.user_id" {
		t.Fatalf("company user id: want=allowed got=%+v", got)
	}
	guard := f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.companyRow))
	if d := CanRead(guard, &s); !d.Allowed {
		t.Fatalf("guard via relational company: want=allowed got=%+v", d)
	}
}

func TestCanReadGuardVerifierAndCompanyConflict(t *testing.T) {
	f := newFixture()
	s := *f.session
	s.SealVerifiedByID = ptr(f.driver)
	driver := f.actor(f.driver, identity.RoleEmployee, identity.SubRoleDriver, nil)
	if d := CanRead(driver, &s); !d.Allowed || d.Rule != "employee.verified_seal" {
		t.Fatalf("verifier: want=employee.verified_seal got=%+v", d)
	}

	guard := f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.companyRow))
	guard.TokenCompanyID = ptr(f.otherCompany)
	if d := CanRead(guard, &s); d.Allowed || d.Rule != "guard.company_conflict" {
		t.Fatalf("conflicting token company: want=guard.company_conflict got=%+v", d)
	}
	guard.TokenCompanyID = ptr(f.companyRow)
	if d := CanRead(guard, &s); !d.Allowed {
		t.Fatalf("agreeing token company: want=allowed got=%+v", d)
	}
}

func TestCanReadEmptyFactsDenies(t *testing.T) {
	f := newFixture()
	empty := &SessionFacts{SessionID: uuid.New()}
	for _, a := range []Actor{
		f.actor(f.admin, identity.RoleAdmin, "", nil),
		f.actor(f.companyUser, identity.RoleCompany, "", ptr(f.companyRow)),
		f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.companyRow)),
	} {
		if d := CanRead(a, empty); d.Allowed {
			t.Fatalf("%s with no facts: want=deny got=%+v", a.Role, d)
		}
	}
	if d := CanRead(f.actor(f.admin, identity.RoleAdmin, "", nil), nil); d.Allowed || d.Rule != "no_session" {
		t.Fatalf("nil facts: want=no_session got=%+v", d)
	}
}

func TestDecideMutations(t *testing.T) {
	f := newFixture()
	op := f.actor(f.operator, identity.RoleEmployee, identity.SubRoleOperator, ptr(f.companyRow))
	guard := f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.companyRow))
	full := &OperatorFacts{Found: true, CanCreate: true, CanModify: true, Coins: 3}

	cases := []struct {
		name   string
		actor  Actor
		facts  Facts
		action Action
		want   bool
		rule   string
	}{
		{"operator create", op, Facts{Operator: full}, ActionCreate, true, "create.operator"},
		{"operator create no coins", op, Facts{Operator: &OperatorFacts{Found: true, CanCreate: true, CanModify: true}}, ActionCreate, false, "create.no_coins"},
		{"operator create no perm", op, Facts{Operator: &OperatorFacts{Found: true, CanModify: true, Coins: 5}}, ActionCreate, false, "create.no_permission"},
		{"operator create without modify", op, Facts{Operator: &OperatorFacts{Found: true, CanCreate: true, Coins: 5}}, ActionCreate, false, "create.no_modify"},
		{"operator create no perm row", op, Facts{}, ActionCreate, false, "create.no_modify"},
		{"guard create", guard, Facts{Operator: full}, ActionCreate, false, "create.not_operator"},
		{"operator modify", op, Facts{Operator: full, Session: f.session}, ActionModify, true, "modify.operator"},
		{"operator modify no perm", op, Facts{Operator: &OperatorFacts{Found: true}, Session: f.session}, ActionModify, false, "modify.no_permission"},
		{"guard verify", guard, Facts{Session: f.session}, ActionVerify, true, "verify.guard"},
		{"guard scan", guard, Facts{Session: f.session}, ActionGuardScan, true, "guard_scan.guard"},
		{"operator verify", op, Facts{Session: f.session}, ActionVerify, false, "verify.not_guard"},
		{"comment by reader", op, Facts{Session: f.session}, ActionComment, true, "employee.created_session"},
		{"unknown action", op, Facts{}, Action("delete"), false, "unknown_action"},
	}
	for _, tc := range cases {
		got := Decide(tc.actor, tc.facts, tc.action)
		if got.Allowed != tc.want || got.Rule != tc.rule {
			t.Fatalf("%s: want=%v/%s got=%v/%s", tc.name, tc.want, tc.rule, got.Allowed, got.Rule)
		}
	}

	foreignGuard := f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.otherCompany))
	if d := Decide(foreignGuard, Facts{Session: f.session}, ActionVerify); d.Allowed {
		t.Fatalf("foreign guard verify: want=deny got=%+v", d)
	}
	opNoCompany := f.actor(f.operator, identity.RoleEmployee, identity.SubRoleOperator, nil)
	if d := Decide(opNoCompany, Facts{Operator: full}, ActionCreate); d.Allowed || d.Rule != "create.no_company" {
		t.Fatalf("operator without company: want=create.no_company got=%+v", d)
	}
}

func TestManages(t *testing.T) {
	f := newFixture()
	sa := f.actor(f.superAdmin, identity.RoleSuperAdmin, "", nil)
	admin := f.actor(f.admin, identity.RoleAdmin, "", nil)
	company := f.actor(f.companyUser, identity.RoleCompany, "", ptr(f.companyRow))

	adminTarget := UserFacts{UserID: f.admin, Role: identity.RoleAdmin}
	createdCompanyUser := UserFacts{UserID: f.companyUser, Role: identity.RoleCompany, CreatedByID: ptr(f.admin), CompanyID: ptr(f.companyRow)}
	memberEmployee := UserFacts{UserID: f.operator, Role: identity.RoleEmployee, CompanyID: ptr(f.companyRow), CreatedByID: ptr(f.companyUser), CompanyCreatedByID: ptr(f.admin)}
	foreignEmployee := UserFacts{UserID: f.driver, Role: identity.RoleEmployee, CompanyID: ptr(f.otherCompany), CompanyCreatedByID: ptr(f.otherAdmin)}

	cases := []struct {
		name   string
		actor  Actor
		target UserFacts
		want   bool
	}{
		{"superadmin to admin", sa, adminTarget, true},
		{"superadmin to employee", sa, memberEmployee, false},
		{"admin to created user", admin, createdCompanyUser, true},
		{"admin to company member", admin, memberEmployee, true},
		{"admin to foreign", admin, foreignEmployee, false},
		{"company to employee", company, memberEmployee, true},
		{"company to foreign employee", company, foreignEmployee, false},
		{"company to admin", company, adminTarget, false},
		{"admin to self", admin, adminTarget, false},
		{"employee to anyone", f.actor(f.operator, identity.RoleEmployee, identity.SubRoleOperator, ptr(f.companyRow)), foreignEmployee, false},
	}
	for _, tc := range cases {
		if got := Manages(tc.actor, tc.target); got.Allowed != tc.want {
			t.Fatalf("%s: want=%v got=%+v", tc.name, tc.want, got)
		}
	}
}

func TestCanReadCompanyAndCreateUser(t *testing.T) {
	f := newFixture()
	rec := CompanyFacts{CompanyID: f.companyRow, CreatedByID: ptr(f.admin)}
	admin := f.actor(f.admin, identity.RoleAdmin, "", nil)
	otherAdmin := f.actor(f.otherAdmin, identity.RoleAdmin, "", nil)
	company := f.actor(f.companyUser, identity.RoleCompany, "", ptr(f.companyRow))
	guard := f.actor(f.guard, identity.RoleEmployee, identity.SubRoleGuard, ptr(f.companyRow))

	if !CanReadCompany(admin, rec).Allowed || CanReadCompany(otherAdmin, rec).Allowed {
		t.Fatalf("admin company access mismatch")
	}
	if !CanReadCompany(company, rec).Allowed || !CanReadCompany(guard, rec).Allowed {
		t.Fatalf("members must read their company")
	}

	if !CanCreateUser(admin, identity.RoleEmployee, &rec).Allowed {
		t.Fatalf("admin creating employee in own company: want=allowed")
	}
	if CanCreateUser(otherAdmin, identity.RoleEmployee, &rec).Allowed {
		t.Fatalf("foreign admin creating employee: want=deny")
	}
	if !CanCreateUser(company, identity.RoleEmployee, &rec).Allowed {
		t.Fatalf("company creating employee: want=allowed")
	}
	if CanCreateUser(company, identity.RoleAdmin, nil).Allowed {
		t.Fatalf("company creating admin: want=deny")
	}
	if CanCreateUser(guard, identity.RoleEmployee, &rec).Allowed {
		t.Fatalf("employee creating users: want=deny")
	}
}
