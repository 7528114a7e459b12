package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/ctxutil"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// AccessService loads the relational facts the access policy decides on.
// Missing rows surface as NotFound before any policy runs.
type AccessService interface {
	Actor(dbc dbctx.Context) (access.Actor, *types.User, error)
	AuthorizeSession(dbc dbctx.Context, sessionID uuid.UUID, action access.Action) (access.Actor, *types.Session, error)
	SessionFacts(dbc dbctx.Context, s *types.Session) (*access.SessionFacts, error)
	OperatorFacts(dbc dbctx.Context, userID uuid.UUID) (*access.OperatorFacts, error)
	UserFacts(dbc dbctx.Context, u *types.User) (access.UserFacts, error)
	CompanyFacts(dbc dbctx.Context, companyID uuid.UUID) (*access.CompanyFacts, error)
	ListScope(dbc dbctx.Context, a access.Actor) (repos.SessionScope, error)
}

type accessService struct {
	log   *logger.Logger
	repos repos.Set
}

func NewAccessService(baseLog *logger.Logger, set repos.Set) AccessService {
	return &accessService{log: baseLog.With("service", "AccessService"), repos: set}
}

func (s *accessService) Actor(dbc dbctx.Context) (access.Actor, *types.User, error) {
	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return access.Actor{}, nil, apierr.Unauthenticated("authentication required")
	}
	u, err := s.repos.Users.GetByID(dbc, rd.UserID)
	if err != nil {
		return access.Actor{}, nil, apierr.Internal(fmt.Errorf("load actor: %w", err))
	}
	if u == nil {
		return access.Actor{}, nil, apierr.Unauthenticated("user no longer exists")
	}
	return access.ActorFromUser(u, rd.CompanyID), u, nil
}

func (s *accessService) AuthorizeSession(dbc dbctx.Context, sessionID uuid.UUID, action access.Action) (access.Actor, *types.Session, error) {
	actor, _, err := s.Actor(dbc)
	if err != nil {
		return actor, nil, err
	}
	sess, err := s.repos.Sessions.GetByID(dbc, sessionID)
	if err != nil {
		return actor, nil, apierr.Internal(fmt.Errorf("load session: %w", err))
	}
	if sess == nil {
		return actor, nil, apierr.NotFound("session not found")
	}
	facts := access.Facts{}
	if facts.Session, err = s.SessionFacts(dbc, sess); err != nil {
		return actor, nil, err
	}
	if action == access.ActionModify {
		if facts.Operator, err = s.OperatorFacts(dbc, actor.UserID); err != nil {
			return actor, nil, err
		}
	}
	d := access.Decide(actor, facts, action)
	if !d.Allowed {
		s.log.Debug("Session access denied", "actor_id", actor.UserID, "session", sessionID, "action", action, "rule", d.Rule)
		return actor, nil, apierr.Forbidden(d.Reason)
	}
	return actor, sess, nil
}

func (s *accessService) SessionFacts(dbc dbctx.Context, sess *types.Session) (*access.SessionFacts, error) {
	facts := &access.SessionFacts{
		SessionID:         sess.ID,
		Status:            sess.Status,
		CompanyID:         sess.CompanyID,
		CreatedByID:       sess.CreatedByID,
		CompanyIdentities: []uuid.UUID{sess.CompanyID},
	}
	seal, err := s.repos.Seals.GetBySessionID(dbc, sess.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load seal: %w", err))
	}
	if seal != nil {
		facts.SealVerifiedByID = seal.VerifiedByID
	}

	// The session's company id is either a company row or a COMPANY user.
	company, err := s.repos.Companies.GetByID(dbc, sess.CompanyID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load company: %w", err))
	}
	if company != nil {
		facts.CompanyCreatedByIDs = appendID(facts.CompanyCreatedByIDs, company.CreatedByID)
		return facts, nil
	}
	owner, err := s.repos.Users.GetByID(dbc, sess.CompanyID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load company user: %w", err))
	}
	if owner == nil || owner.Role != types.RoleCompany {
		return facts, nil
	}
	facts.CompanyCreatedByIDs = appendID(facts.CompanyCreatedByIDs, owner.CreatedByID)
	if owner.CompanyID != nil {
		facts.CompanyIdentities = appendID(facts.CompanyIdentities, owner.CompanyID)
		row, err := s.repos.Companies.GetByID(dbc, *owner.CompanyID)
		if err != nil {
			return nil, apierr.Internal(fmt.Errorf("load company: %w", err))
		}
		if row != nil {
			facts.CompanyCreatedByIDs = appendID(facts.CompanyCreatedByIDs, row.CreatedByID)
		}
	}
	return facts, nil
}

func (s *accessService) OperatorFacts(dbc dbctx.Context, userID uuid.UUID) (*access.OperatorFacts, error) {
	out := &access.OperatorFacts{}
	perms, err := s.repos.OperatorPerms.GetByUserID(dbc, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load operator permissions: %w", err))
	}
	if perms != nil {
		out.Found = true
		out.CanCreate = perms.CanCreate
		out.CanModify = perms.CanModify
		out.CanDelete = perms.CanDelete
	}
	u, err := s.repos.Users.GetByID(dbc, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load operator: %w", err))
	}
	if u != nil {
		out.Coins = u.Coins
	}
	return out, nil
}

func (s *accessService) UserFacts(dbc dbctx.Context, u *types.User) (access.UserFacts, error) {
	out := access.UserFacts{
		UserID:      u.ID,
		Role:        u.Role,
		SubRole:     u.SubRole,
		CompanyID:   u.CompanyID,
		CreatedByID: u.CreatedByID,
	}
	if u.CompanyID == nil {
		return out, nil
	}
	cf, err := s.CompanyFacts(dbc, *u.CompanyID)
	if err != nil {
		if apierr.IsCode(err, apierr.CodeNotFound) {
			return out, nil
		}
		return out, err
	}
	out.CompanyCreatedByID = cf.CreatedByID
	return out, nil
}

// CompanyFacts resolves a company row, or a COMPANY user standing in for one.
func (s *accessService) CompanyFacts(dbc dbctx.Context, companyID uuid.UUID) (*access.CompanyFacts, error) {
	c, err := s.repos.Companies.GetByID(dbc, companyID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load company: %w", err))
	}
	if c != nil {
		return &access.CompanyFacts{CompanyID: c.ID, CreatedByID: c.CreatedByID}, nil
	}
	u, err := s.repos.Users.GetByID(dbc, companyID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load company user: %w", err))
	}
	if u == nil || u.Role != types.RoleCompany {
		return nil, apierr.NotFound("company not found")
	}
	return &access.CompanyFacts{CompanyID: u.ID, CreatedByID: u.CreatedByID}, nil
}

// ListScope mirrors the read table as a repository filter. Rows it returns are
// still checked against CanRead by callers.
func (s *accessService) ListScope(dbc dbctx.Context, a access.Actor) (repos.SessionScope, error) {
	scope := repos.SessionScope{}
	switch a.Role {
	case types.RoleSuperAdmin:
		scope.All = true

	case types.RoleAdmin:
		companies, err := s.repos.Companies.ListCreatedBy(dbc, a.UserID)
		if err != nil {
			return scope, apierr.Internal(err)
		}
		var companyIDs []uuid.UUID
		for _, c := range companies {
			companyIDs = append(companyIDs, c.ID)
		}
		created, err := s.repos.Users.ListCreatedBy(dbc, a.UserID)
		if err != nil {
			return scope, apierr.Internal(err)
		}
		members, err := s.repos.Users.ListByCompanyIDs(dbc, companyIDs)
		if err != nil {
			return scope, apierr.Internal(err)
		}
		scope.CompanyIDs = append(scope.CompanyIDs, companyIDs...)
		for _, u := range append(created, members...) {
			if u.Role == types.RoleCompany {
				scope.CompanyIDs = append(scope.CompanyIDs, u.ID)
			}
		}

	case types.RoleCompany:
		scope.CompanyIDs = []uuid.UUID{a.UserID}
		scope.CreatorIDs = []uuid.UUID{a.UserID}
		if a.CompanyID != nil {
			ids, err := s.companyIdentityScope(dbc, *a.CompanyID)
			if err != nil {
				return scope, err
			}
			scope.CompanyIDs = append(scope.CompanyIDs, ids...)
		}

	case types.RoleEmployee:
		if !a.IsGuard() {
			scope.CreatorIDs = []uuid.UUID{a.UserID}
			verified, err := s.repos.Seals.ListSessionIDsVerifiedBy(dbc, a.UserID)
			if err != nil {
				return scope, apierr.Internal(err)
			}
			scope.SessionIDs = verified
		}
		if a.CompanyID != nil {
			ids, err := s.companyIdentityScope(dbc, *a.CompanyID)
			if err != nil {
				return scope, err
			}
			scope.CompanyIDs = ids
		}
	}
	return scope, nil
}

// companyIdentityScope returns companyID plus every COMPANY user linked to it.
func (s *accessService) companyIdentityScope(dbc dbctx.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	out := []uuid.UUID{companyID}
	members, err := s.repos.Users.ListByCompanyIDs(dbc, []uuid.UUID{companyID})
	if err != nil {
		return nil, apierr.Internal(err)
	}
	for _, u := range members {
		if u.Role == types.RoleCompany {
			out = append(out, u.ID)
		}
	}
	return out, nil
}

func appendID(ids []uuid.UUID, id *uuid.UUID) []uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return ids
	}
	for _, v := range ids {
		if v == *id {
			return ids
		}
	}
	return append(ids, *id)
}
