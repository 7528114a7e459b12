package coins

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type CoinTransactionRepo interface {
	Create(dbc dbctx.Context, txns []*types.CoinTransaction) ([]*types.CoinTransaction, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.CoinTransaction, error)
	CountByReason(dbc dbctx.Context, userID uuid.UUID, reason types.CoinReason) (int64, error)
}

type coinTransactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCoinTransactionRepo(db *gorm.DB, baseLog *logger.Logger) CoinTransactionRepo {
	return &coinTransactionRepo{db: db, log: baseLog.With("repo", "CoinTransactionRepo")}
}

func (r *coinTransactionRepo) Create(dbc dbctx.Context, txns []*types.CoinTransaction) ([]*types.CoinTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(txns) == 0 {
		return []*types.CoinTransaction{}, nil
	}
	for _, t := range txns {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

// ListForUser returns movements where the user is either side, newest first.
func (r *coinTransactionRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.CoinTransaction, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.CoinTransaction{}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *coinTransactionRepo) CountByReason(dbc dbctx.Context, userID uuid.UUID, reason types.CoinReason) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CoinTransaction{}).
		Where("from_user_id = ? AND reason = ?", userID, reason).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
