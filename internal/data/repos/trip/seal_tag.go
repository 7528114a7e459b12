package trip

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	domaintrip "github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type SealTagRepo interface {
	Create(dbc dbctx.Context, tags []*types.SealTag) ([]*types.SealTag, error)
	ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SealTag, error)
	GetByBarcode(dbc dbctx.Context, sessionID uuid.UUID, barcode string, forUpdate bool) (*types.SealTag, error)
}

type sealTagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSealTagRepo(db *gorm.DB, baseLog *logger.Logger) SealTagRepo {
	return &sealTagRepo{db: db, log: baseLog.With("repo", "SealTagRepo")}
}

func (r *sealTagRepo) Create(dbc dbctx.Context, tags []*types.SealTag) ([]*types.SealTag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(tags) == 0 {
		return []*types.SealTag{}, nil
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

func (r *sealTagRepo) ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SealTag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.SealTag{}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, barcode_key ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByBarcode matches on the normalized barcode key.
func (r *sealTagRepo) GetByBarcode(dbc dbctx.Context, sessionID uuid.UUID, barcode string, forUpdate bool) (*types.SealTag, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	key := domaintrip.NormalizeBarcode(barcode)
	if key == "" {
		return nil, nil
	}
	q := transaction.WithContext(dbc.Ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var t types.SealTag
	err := q.Where("session_id = ? AND barcode_key = ?", sessionID, key).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
