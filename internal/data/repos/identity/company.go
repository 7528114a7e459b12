package identity

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type CompanyRepo interface {
	Create(dbc dbctx.Context, companies []*types.Company) ([]*types.Company, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Company, error)
	ListCreatedBy(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.Company, error)
}

type companyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompanyRepo(db *gorm.DB, baseLog *logger.Logger) CompanyRepo {
	return &companyRepo{db: db, log: baseLog.With("repo", "CompanyRepo")}
}

func (r *companyRepo) Create(dbc dbctx.Context, companies []*types.Company) ([]*types.Company, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(companies) == 0 {
		return []*types.Company{}, nil
	}
	for _, c := range companies {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Company, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Company
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepo) ListCreatedBy(dbc dbctx.Context, creatorID uuid.UUID) ([]*types.Company, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Company
	if creatorID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("created_by_id = ?", creatorID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
