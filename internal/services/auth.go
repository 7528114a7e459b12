package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/ctxutil"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// JWTClaims carries the principal. Role, SubRole and CompanyID are hints; the
// user row stays authoritative for every decision.
type JWTClaims struct {
	Role      string `json:"role"`
	SubRole   string `json:"sub_role,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Login(dbc dbctx.Context, email, password string) (string, *types.User, error)
	IssueToken(user *types.User) (string, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	log          *logger.Logger
	users        repos.UserRepo
	logs         repos.ActivityLogRepo
	jwtSecretKey []byte
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(
	baseLog *logger.Logger,
	users repos.UserRepo,
	logs repos.ActivityLogRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
) AuthService {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		users:        users,
		logs:         logs,
		jwtSecretKey: []byte(jwtSecretKey),
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func (as *authService) Login(dbc dbctx.Context, email, password string) (string, *types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, apierr.Validation("email and password are required")
	}
	user, err := as.users.GetByEmail(dbc, email)
	if err != nil {
		return "", nil, apierr.Internal(fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		return "", nil, apierr.Unauthenticated("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, apierr.Unauthenticated("invalid credentials")
	}
	tok, err := as.IssueToken(user)
	if err != nil {
		return "", nil, apierr.Internal(err)
	}

	at := as.now().UTC()
	entry := &types.ActivityLog{
		ID:                 uuid.New(),
		UserID:             user.ID,
		Action:             audit.ActionLogin,
		TargetResourceID:   &user.ID,
		TargetResourceType: audit.ResourceUser,
		Details:            datatypes.JSON([]byte(`{}`)),
		CreatedAt:          at,
	}
	if _, err := as.logs.Create(dbc, []*types.ActivityLog{entry}); err != nil {
		as.log.Warn("Login activity log failed", "user_id", user.ID, "error", err)
	}
	return tok, user, nil
}

func (as *authService) IssueToken(user *types.User) (string, error) {
	if user == nil || user.ID == uuid.Nil {
		return "", errors.New("user required")
	}
	if len(as.jwtSecretKey) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := as.now()
	claims := JWTClaims{
		Role:    string(user.Role),
		SubRole: string(user.SubRole),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	if user.CompanyID != nil {
		claims.CompanyID = user.CompanyID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(as.jwtSecretKey)
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, apierr.Unauthenticated("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, apierr.Unauthenticated("invalid or expired token")
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, apierr.Unauthenticated("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, apierr.Unauthenticated("invalid subject in token")
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
		SubRole:     claims.SubRole,
	}
	if claims.CompanyID != "" {
		cid, err := uuid.Parse(claims.CompanyID)
		if err != nil {
			return ctx, apierr.Unauthenticated("invalid company in token")
		}
		rd.CompanyID = &cid
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

// HashPassword returns the bcrypt hash stored on user rows.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", apierr.Validation("password must be at least 8 characters")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apierr.Internal(fmt.Errorf("hash password: %w", err))
	}
	return string(hashed), nil
}
