package trip

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	domaintrip "github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type GuardSealTagRepo interface {
	Create(dbc dbctx.Context, tags []*types.GuardSealTag) ([]*types.GuardSealTag, error)
	ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.GuardSealTag, error)
	ExistsByBarcode(dbc dbctx.Context, sessionID uuid.UUID, barcode string) (bool, error)
}

type guardSealTagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGuardSealTagRepo(db *gorm.DB, baseLog *logger.Logger) GuardSealTagRepo {
	return &guardSealTagRepo{db: db, log: baseLog.With("repo", "GuardSealTagRepo")}
}

func (r *guardSealTagRepo) Create(dbc dbctx.Context, tags []*types.GuardSealTag) ([]*types.GuardSealTag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tags) == 0 {
		return []*types.GuardSealTag{}, nil
	}
	for _, t := range tags {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		t.BarcodeKey = domaintrip.NormalizeBarcode(t.Barcode)
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *guardSealTagRepo) ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.GuardSealTag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.GuardSealTag{}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, barcode_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *guardSealTagRepo) ExistsByBarcode(dbc dbctx.Context, sessionID uuid.UUID, barcode string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.GuardSealTag{}).
		Where("session_id = ? AND barcode_key = ?", sessionID, domaintrip.NormalizeBarcode(barcode)).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
