// Package access decides who may read or mutate trip sessions, company
// records and coin balances. Decisions are pure: callers load the facts.
package access

import (
	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

// Actor is the authenticated principal. TokenCompanyID comes from the token
// claims, CompanyID from the user row.
type Actor struct {
	UserID         uuid.UUID
	Role           identity.Role
	SubRole        identity.SubRole
	CompanyID      *uuid.UUID
	TokenCompanyID *uuid.UUID
}

func ActorFromUser(u *identity.User, tokenCompanyID *uuid.UUID) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		UserID:         u.ID,
		Role:           u.Role,
		SubRole:        u.SubRole,
		CompanyID:      u.CompanyID,
		TokenCompanyID: tokenCompanyID,
	}
}

func (a Actor) Authenticated() bool { return a.UserID != uuid.Nil && a.Role != "" }

func (a Actor) IsOperator() bool {
	return a.Role == identity.RoleEmployee && a.SubRole == identity.SubRoleOperator
}

func (a Actor) IsGuard() bool {
	return a.Role == identity.RoleEmployee && a.SubRole == identity.SubRoleGuard
}

// companyConflict reports a token company claim that disagrees with the user row.
func (a Actor) companyConflict() bool {
	return a.TokenCompanyID != nil && a.CompanyID != nil && *a.TokenCompanyID != *a.CompanyID
}

// SessionFacts are the relational facts about one session that read rules consult.
type SessionFacts struct {
	SessionID   uuid.UUID
	Status      trip.Status
	CompanyID   uuid.UUID
	CreatedByID uuid.UUID
	// SealVerifiedByID is the guard recorded on the session's seal, if any.
	SealVerifiedByID *uuid.UUID
	// CompanyIdentities are every id that denotes the session's company: the
	// company row id and, for sessions keyed by a company user id, that user's
	// company id as well.
	CompanyIdentities []uuid.UUID
	// CompanyCreatedByIDs are the creators of the session's company row and of
	// the company user that owns it.
	CompanyCreatedByIDs []uuid.UUID
}

func (s *SessionFacts) belongsTo(id *uuid.UUID) bool {
	if s == nil || id == nil || *id == uuid.Nil {
		return false
	}
	return containsID(s.CompanyIdentities, *id)
}

// OperatorFacts are the capability flags and balance of the acting operator.
type OperatorFacts struct {
	Found     bool
	CanCreate bool
	CanModify bool
	CanDelete bool
	Coins     int64
}

// CompanyFacts describe a company record.
type CompanyFacts struct {
	CompanyID   uuid.UUID
	CreatedByID *uuid.UUID
}

// UserFacts describe a target user for allocation and management decisions.
type UserFacts struct {
	UserID      uuid.UUID
	Role        identity.Role
	SubRole     identity.SubRole
	CompanyID   *uuid.UUID
	CreatedByID *uuid.UUID
	// CompanyCreatedByID is the creator of the target's company row.
	CompanyCreatedByID *uuid.UUID
}

type Facts struct {
	Session  *SessionFacts
	Operator *OperatorFacts
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func eqID(a *uuid.UUID, b uuid.UUID) bool {
	return a != nil && b != uuid.Nil && *a == b
}
