package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type PermissionsRequest struct {
	CanCreate *bool `json:"can_create,omitempty"`
	CanModify *bool `json:"can_modify,omitempty"`
	CanDelete *bool `json:"can_delete,omitempty"`
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	SubRole  string `json:"subrole,omitempty"`
	// CompanyID places an EMPLOYEE. Company actors default to their own company.
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	// CompanyName and Address describe the company record created with a COMPANY user.
	CompanyName string              `json:"company_name,omitempty"`
	Address     string              `json:"address,omitempty"`
	Permissions *PermissionsRequest `json:"permissions,omitempty"`
}

type UserProfile struct {
	User        *types.User                `json:"user"`
	Company     *types.Company             `json:"company,omitempty"`
	Permissions *types.OperatorPermissions `json:"permissions,omitempty"`
}

type UserService interface {
	Me(dbc dbctx.Context) (*UserProfile, error)
	CreateUser(dbc dbctx.Context, req CreateUserRequest) (*UserProfile, error)
	SetPermissions(dbc dbctx.Context, userID uuid.UUID, req PermissionsRequest) (*types.OperatorPermissions, error)
}

type userService struct {
	db     *gorm.DB
	log    *logger.Logger
	repos  repos.Set
	access AccessService
	now    func() time.Time
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, set repos.Set, accessSvc AccessService) UserService {
	return &userService{
		db:     db,
		log:    baseLog.With("service", "UserService"),
		repos:  set,
		access: accessSvc,
		now:    time.Now,
	}
}

func (s *userService) Me(dbc dbctx.Context) (*UserProfile, error) {
	_, u, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	return s.profile(dbc, u)
}

func (s *userService) profile(dbc dbctx.Context, u *types.User) (*UserProfile, error) {
	out := &UserProfile{User: u}
	if u.CompanyID != nil {
		c, err := s.repos.Companies.GetByID(dbc, *u.CompanyID)
		if err != nil {
			return nil, apierr.Internal(fmt.Errorf("load company: %w", err))
		}
		out.Company = c
	}
	if u.IsOperator() {
		p, err := s.repos.OperatorPerms.GetByUserID(dbc, u.ID)
		if err != nil {
			return nil, apierr.Internal(fmt.Errorf("load permissions: %w", err))
		}
		out.Permissions = p
	}
	return out, nil
}

func (s *userService) CreateUser(dbc dbctx.Context, req CreateUserRequest) (*UserProfile, error) {
	actor, _, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" || email == "" {
		return nil, apierr.Validation("name and email are required")
	}
	if !strings.Contains(email, "@") {
		return nil, apierr.Validation("email is invalid")
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		return nil, apierr.Validation(fmt.Sprintf("unknown role %q", req.Role))
	}
	subRole, ok := identity.ParseSubRole(req.SubRole)
	if !ok {
		return nil, apierr.Validation(fmt.Sprintf("unknown subrole %q", req.SubRole))
	}
	if role == identity.RoleEmployee && subRole == identity.SubRoleNone {
		return nil, apierr.Validation("employees need a subrole")
	}
	if role != identity.RoleEmployee && subRole != identity.SubRoleNone {
		return nil, apierr.Validation("only employees carry a subrole")
	}

	var company *access.CompanyFacts
	if role == identity.RoleEmployee {
		companyID := req.CompanyID
		if companyID == nil && actor.Role == identity.RoleCompany {
			companyID = actor.CompanyID
			if companyID == nil {
				id := actor.UserID
				companyID = &id
			}
		}
		if companyID == nil {
			return nil, apierr.Validation("company_id is required for employees")
		}
		if company, err = s.access.CompanyFacts(dbc, *companyID); err != nil {
			return nil, err
		}
	}
	if d := access.CanCreateUser(actor, role, company); !d.Allowed {
		s.log.Debug("User create denied", "actor_id", actor.UserID, "role", role, "rule", d.Rule)
		return nil, apierr.Forbidden(d.Reason)
	}

	exists, err := s.repos.Users.EmailExists(dbc, email)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("check email: %w", err))
	}
	if exists {
		return nil, apierr.Conflict("email already registered")
	}
	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	creatorID := actor.UserID
	user := &types.User{
		ID:          uuid.New(),
		Name:        name,
		Email:       email,
		Password:    hashed,
		Role:        role,
		SubRole:     subRole,
		CreatedByID: &creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if company != nil {
		cid := company.CompanyID
		user.CompanyID = &cid
	}

	out := &UserProfile{User: user}
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if role == identity.RoleCompany {
			companyName := strings.TrimSpace(req.CompanyName)
			if companyName == "" {
				companyName = name
			}
			row := &types.Company{
				ID:          uuid.New(),
				Name:        companyName,
				Address:     strings.TrimSpace(req.Address),
				CreatedByID: &creatorID,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if _, err := s.repos.Companies.Create(inner, []*types.Company{row}); err != nil {
				return err
			}
			user.CompanyID = &row.ID
			out.Company = row
		}
		if _, err := s.repos.Users.Create(inner, []*types.User{user}); err != nil {
			return err
		}
		if user.IsOperator() {
			perms := applyPermissions(&types.OperatorPermissions{UserID: user.ID, CanCreate: true, CanModify: true}, req.Permissions)
			if err := s.repos.OperatorPerms.Upsert(inner, perms); err != nil {
				return err
			}
			out.Permissions = perms
		}
		return s.writeUserLog(inner, audit.ActionCreate, actor.UserID, user.ID, map[string]any{
			"email":   user.Email,
			"role":    user.Role,
			"subrole": user.SubRole,
		}, now)
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("create user: %w", err))
	}
	s.log.Info("User created", "actor_id", actor.UserID, "user_id", user.ID, "role", role, "subrole", subRole)
	return out, nil
}

func (s *userService) SetPermissions(dbc dbctx.Context, userID uuid.UUID, req PermissionsRequest) (*types.OperatorPermissions, error) {
	actor, _, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	target, err := s.repos.Users.GetByID(dbc, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load user: %w", err))
	}
	if target == nil {
		return nil, apierr.NotFound("user not found")
	}
	if !target.IsOperator() {
		return nil, apierr.Validation("permissions apply to operators only")
	}
	facts, err := s.access.UserFacts(dbc, target)
	if err != nil {
		return nil, err
	}
	if d := access.Manages(actor, facts); !d.Allowed {
		s.log.Debug("Permission change denied", "actor_id", actor.UserID, "user_id", userID, "rule", d.Rule)
		return nil, apierr.Forbidden(d.Reason)
	}

	current, err := s.repos.OperatorPerms.GetByUserID(dbc, userID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load permissions: %w", err))
	}
	if current == nil {
		current = &types.OperatorPermissions{UserID: userID}
	}
	perms := applyPermissions(current, &req)
	now := s.now().UTC()
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := s.repos.OperatorPerms.Upsert(inner, perms); err != nil {
			return err
		}
		return s.writeUserLog(inner, audit.ActionUpdate, actor.UserID, userID, map[string]any{
			"permissions": map[string]bool{
				"canCreate": perms.CanCreate,
				"canModify": perms.CanModify,
				"canDelete": perms.CanDelete,
			},
		}, now)
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("update permissions: %w", err))
	}
	s.log.Info("Operator permissions updated", "actor_id", actor.UserID, "user_id", userID)
	return perms, nil
}

func (s *userService) writeUserLog(dbc dbctx.Context, action string, actorID, userID uuid.UUID, details map[string]any, at time.Time) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	target := userID
	_, err = s.repos.ActivityLogs.Create(dbc, []*types.ActivityLog{{
		ID:                 uuid.New(),
		UserID:             actorID,
		Action:             action,
		TargetResourceID:   &target,
		TargetResourceType: audit.ResourceUser,
		Details:            datatypes.JSON(raw),
		CreatedAt:          at,
	}})
	return err
}

func applyPermissions(p *types.OperatorPermissions, req *PermissionsRequest) *types.OperatorPermissions {
	if req == nil {
		return p
	}
	if req.CanCreate != nil {
		p.CanCreate = *req.CanCreate
	}
	if req.CanModify != nil {
		p.CanModify = *req.CanModify
	}
	if req.CanDelete != nil {
		p.CanDelete = *req.CanDelete
	}
	return p
}
