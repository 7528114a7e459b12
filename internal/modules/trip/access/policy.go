package access

import (
	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
)

type Action string

const (
	ActionRead      Action = "read"
	ActionCreate    Action = "create"
	ActionModify    Action = "modify"
	ActionVerify    Action = "verify"
	ActionGuardScan Action = "guard_scan"
	ActionComment   Action = "comment"
)

// Decision is the outcome of a policy check. Rule names the table row that
// decided; Reason is safe to show to the caller.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule"`
	Reason  string `json:"reason,omitempty"`
}

func allow(rule string) Decision { return Decision{Allowed: true, Rule: rule} }

func deny(rule, reason string) Decision { return Decision{Rule: rule, Reason: reason} }

type readRule struct {
	name  string
	match func(a Actor, s *SessionFacts) bool
}

// readTable lists, per actor class, the rules that grant read access. The
// first matching row allows; no match denies.
var readTable = map[string][]readRule{
	string(identity.RoleSuperAdmin): {
		{name: "superadmin.any", match: func(Actor, *SessionFacts) bool { return true }},
	},
	string(identity.RoleAdmin): {
		{name: "admin.created_company", match: func(a Actor, s *SessionFacts) bool {
			return containsID(s.CompanyCreatedByIDs, a.UserID)
		}},
	},
	string(identity.RoleCompany): {
		{name: "company.user_id", match: func(a Actor, s *SessionFacts) bool {
			return containsID(s.CompanyIdentities, a.UserID)
		}},
		{name: "company.company_id", match: func(a Actor, s *SessionFacts) bool {
			return s.belongsTo(a.CompanyID)
		}},
		{name: "company.created_session", match: func(a Actor, s *SessionFacts) bool {
			return a.UserID == s.CreatedByID
		}},
	},
	"EMPLOYEE": {
		{name: "employee.created_session", match: func(a Actor, s *SessionFacts) bool {
			return a.UserID == s.CreatedByID
		}},
		{name: "employee.verified_seal", match: func(a Actor, s *SessionFacts) bool {
			return eqID(s.SealVerifiedByID, a.UserID)
		}},
		{name: "employee.same_company", match: func(a Actor, s *SessionFacts) bool {
			return s.belongsTo(a.CompanyID)
		}},
	},
	"EMPLOYEE/GUARD": {
		{name: "guard.same_company", match: func(a Actor, s *SessionFacts) bool {
			return s.belongsTo(a.CompanyID)
		}},
	},
}

func actorClass(a Actor) string {
	if a.IsGuard() {
		return "EMPLOYEE/GUARD"
	}
	return string(a.Role)
}

// CanRead decides read access to a session (and its seal records).
func CanRead(a Actor, s *SessionFacts) Decision {
	if !a.Authenticated() {
		return deny("unauthenticated", "authentication required")
	}
	if s == nil {
		return deny("no_session", "session not found")
	}
	class := actorClass(a)
	if class == "EMPLOYEE/GUARD" {
		if a.CompanyID == nil {
			return deny("guard.no_company", "guard is not linked to a company")
		}
		if a.companyConflict() {
			return deny("guard.company_conflict", "guard company could not be established")
		}
	}
	if a.Role == identity.RoleCompany && a.companyConflict() {
		return deny("company.company_conflict", "company could not be established")
	}
	rules, ok := readTable[class]
	if !ok {
		return deny("unknown_role", "role has no session access")
	}
	for _, r := range rules {
		if r.match(a, s) {
			return allow(r.name)
		}
	}
	return deny(class+".deny", "not permitted to access this session")
}

// Decide evaluates action for actor against facts.
func Decide(a Actor, f Facts, action Action) Decision {
	if !a.Authenticated() {
		return deny("unauthenticated", "authentication required")
	}
	switch action {
	case ActionRead, ActionComment:
		return CanRead(a, f.Session)

	case ActionCreate:
		if !a.IsOperator() {
			return deny("create.not_operator", "only operators can create sessions")
		}
		if a.CompanyID == nil {
			return deny("create.no_company", "operator is not linked to a company")
		}
		// Creation is a mutation: canModify is the base grant, canCreate is on top.
		if f.Operator == nil || !f.Operator.Found || !f.Operator.CanModify {
			return deny("create.no_modify", "operator lacks modify permission")
		}
		if !f.Operator.CanCreate {
			return deny("create.no_permission", "operator lacks create permission")
		}
		if f.Operator.Coins < 1 {
			return deny("create.no_coins", "insufficient coins to create a session")
		}
		return allow("create.operator")

	case ActionModify:
		if !a.IsOperator() {
			return deny("modify.not_operator", "only operators can modify sessions")
		}
		if f.Operator == nil || !f.Operator.Found || !f.Operator.CanModify {
			return deny("modify.no_permission", "operator lacks modify permission")
		}
		if d := CanRead(a, f.Session); !d.Allowed {
			return deny("modify."+d.Rule, d.Reason)
		}
		return allow("modify.operator")

	case ActionVerify, ActionGuardScan:
		if !a.IsGuard() {
			return deny(string(action)+".not_guard", "only guards can verify sessions")
		}
		if d := CanRead(a, f.Session); !d.Allowed {
			return deny(string(action)+"."+d.Rule, d.Reason)
		}
		return allow(string(action) + ".guard")
	}
	return deny("unknown_action", "unsupported action")
}

// CanReadCompany decides access to a company record.
func CanReadCompany(a Actor, c CompanyFacts) Decision {
	if !a.Authenticated() {
		return deny("unauthenticated", "authentication required")
	}
	switch a.Role {
	case identity.RoleSuperAdmin:
		return allow("superadmin.any")
	case identity.RoleAdmin:
		if eqID(c.CreatedByID, a.UserID) {
			return allow("admin.created_company")
		}
	case identity.RoleCompany:
		if a.UserID == c.CompanyID || eqID(a.CompanyID, c.CompanyID) {
			return allow("company.own")
		}
	case identity.RoleEmployee:
		if eqID(a.CompanyID, c.CompanyID) && !a.companyConflict() {
			return allow("employee.own_company")
		}
	}
	return deny(string(a.Role)+".company_deny", "not permitted to access this company")
}

// Manages decides whether actor administers target: coin allocation and
// operator permission changes both require it.
func Manages(a Actor, t UserFacts) Decision {
	if !a.Authenticated() {
		return deny("unauthenticated", "authentication required")
	}
	if t.UserID == uuid.Nil || t.UserID == a.UserID {
		return deny("manage.self", "cannot manage yourself")
	}
	switch a.Role {
	case identity.RoleSuperAdmin:
		if t.Role == identity.RoleAdmin {
			return allow("superadmin.admin")
		}
		return deny("superadmin.non_admin", "superadmins allocate to admins only")
	case identity.RoleAdmin:
		if eqID(t.CreatedByID, a.UserID) {
			return allow("admin.created_user")
		}
		if eqID(t.CompanyCreatedByID, a.UserID) {
			return allow("admin.company_member")
		}
		return deny("admin.foreign_user", "user is outside your companies")
	case identity.RoleCompany:
		if t.Role != identity.RoleEmployee {
			return deny("company.non_employee", "companies manage their employees only")
		}
		if t.CompanyID != nil && (*t.CompanyID == a.UserID || eqID(a.CompanyID, *t.CompanyID)) {
			return allow("company.employee")
		}
		return deny("company.foreign_employee", "employee belongs to another company")
	}
	return deny(string(a.Role)+".manage_deny", "not permitted to manage users")
}

// CanCreateUser decides whether actor may create a user with the given role
// inside companyID (nil for roles without a company).
func CanCreateUser(a Actor, role identity.Role, company *CompanyFacts) Decision {
	if !a.Authenticated() {
		return deny("unauthenticated", "authentication required")
	}
	switch a.Role {
	case identity.RoleSuperAdmin:
		if role == identity.RoleAdmin || role == identity.RoleCompany {
			return allow("superadmin.create")
		}
		if role == identity.RoleEmployee && company != nil {
			return allow("superadmin.create")
		}
	case identity.RoleAdmin:
		if role == identity.RoleCompany {
			return allow("admin.create_company")
		}
		if role == identity.RoleEmployee && company != nil && eqID(company.CreatedByID, a.UserID) {
			return allow("admin.create_employee")
		}
	case identity.RoleCompany:
		if role == identity.RoleEmployee && company != nil &&
			(company.CompanyID == a.UserID || eqID(a.CompanyID, company.CompanyID)) {
			return allow("company.create_employee")
		}
	}
	return deny(string(a.Role)+".create_user_deny", "not permitted to create this user")
}
