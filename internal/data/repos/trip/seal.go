package trip

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type SealRepo interface {
	Create(dbc dbctx.Context, seal *types.Seal) (*types.Seal, error)
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*types.Seal, error)
	CountBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (int64, error)
	MarkVerified(dbc dbctx.Context, sessionID, verifierID uuid.UUID, at time.Time, verificationData []byte) error
	ListSessionIDsVerifiedBy(dbc dbctx.Context, verifierID uuid.UUID) ([]uuid.UUID, error)
}

type sealRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSealRepo(db *gorm.DB, baseLog *logger.Logger) SealRepo {
	return &sealRepo{db: db, log: baseLog.With("repo", "SealRepo")}
}

func (r *sealRepo) Create(dbc dbctx.Context, seal *types.Seal) (*types.Seal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if seal == nil {
		return nil, errors.New("seal is required")
	}
	if seal.ID == uuid.Nil {
		seal.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(seal).Error; err != nil {
		return nil, err
	}
	return seal, nil
}

func (r *sealRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*types.Seal, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Seal
	err := transaction.WithContext(dbc.Ctx).Where("session_id = ?", sessionID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sealRepo) CountBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Seal{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *sealRepo) MarkVerified(dbc dbctx.Context, sessionID, verifierID uuid.UUID, at time.Time, verificationData []byte) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	updates := map[string]interface{}{
		"verified":       true,
		"verified_by_id": verifierID,
		"scanned_at":     at,
		"updated_at":     at,
	}
	if len(verificationData) > 0 {
		updates["verification_data"] = datatypes.JSON(verificationData)
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Seal{}).
		Where("session_id = ?", sessionID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sealRepo) ListSessionIDsVerifiedBy(dbc dbctx.Context, verifierID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Seal{}).
		Where("verified_by_id = ?", verifierID).
		Pluck("session_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
