package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"gorm.io/gorm"
)

type UserOpts struct {
	Role        types.Role
	SubRole     types.SubRole
	CompanyID   *uuid.UUID
	CreatedByID *uuid.UUID
	Coins       int64
	Password    string
}

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string, opts UserOpts) *types.User {
	tb.Helper()
	role := opts.Role
	if role == "" {
		role = types.RoleEmployee
	}
	pw := opts.Password
	if pw == "" {
		pw = "pw"
	}
	now := time.Now().UTC()
	u := &types.User{
		ID:          uuid.New(),
		Name:        email,
		Email:       email,
		Password:    pw,
		Role:        role,
		SubRole:     opts.SubRole,
		CompanyID:   opts.CompanyID,
		CreatedByID: opts.CreatedByID,
		Coins:       opts.Coins,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCompany(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, createdBy *uuid.UUID) *types.Company {
	tb.Helper()
	now := time.Now().UTC()
	c := &types.Company{
		ID:          uuid.New(),
		Name:        name,
		CreatedByID: createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed company: %v", err)
	}
	return c
}

func SeedOperatorPermissions(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, canCreate, canModify bool) *types.OperatorPermissions {
	tb.Helper()
	now := time.Now().UTC()
	p := &types.OperatorPermissions{
		ID:        uuid.New(),
		UserID:    userID,
		CanCreate: canCreate,
		CanModify: canModify,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed operator permissions: %v", err)
	}
	return p
}

// SeedSession inserts a bare session row with no seal, as left behind by a
// failed seal write.
func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, companyID, creatorID uuid.UUID, status types.SessionStatus) *types.Session {
	tb.Helper()
	now := time.Now().UTC()
	s := &types.Session{
		ID:          uuid.New(),
		Status:      status,
		CompanyID:   companyID,
		CreatedByID: creatorID,
		Source:      "Mine A",
		Destination: "Plant B",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedSealTag(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, barcode string, createdBy *uuid.UUID) *types.SealTag {
	tb.Helper()
	now := time.Now().UTC()
	t := &types.SealTag{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Barcode:     barcode,
		BarcodeKey:  NormalizeBarcode(barcode),
		Method:      "scanned",
		CreatedByID: createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed seal tag: %v", err)
	}
	return t
}

func SeedActivityLog(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, targetID uuid.UUID, action string, details []byte, at time.Time) *types.ActivityLog {
	tb.Helper()
	l := &types.ActivityLog{
		ID:                 uuid.New(),
		UserID:             userID,
		Action:             action,
		TargetResourceID:   PtrUUID(targetID),
		TargetResourceType: "SESSION",
		Details:            details,
		CreatedAt:          at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed activity log: %v", err)
	}
	return l
}

func NormalizeBarcode(s string) string {
	return types.NormalizeBarcode(s)
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
