package audit

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// ActivityLogRepo is append-only: there is no update or delete.
type ActivityLogRepo interface {
	Create(dbc dbctx.Context, logs []*types.ActivityLog) ([]*types.ActivityLog, error)
	// ListByTarget returns newest first. Empty actions matches every action.
	ListByTarget(dbc dbctx.Context, targetID uuid.UUID, actions []string, limit int) ([]*types.ActivityLog, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ActivityLog, error)
}

type activityLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityLogRepo(db *gorm.DB, baseLog *logger.Logger) ActivityLogRepo {
	return &activityLogRepo{db: db, log: baseLog.With("repo", "ActivityLogRepo")}
}

func (r *activityLogRepo) Create(dbc dbctx.Context, logs []*types.ActivityLog) ([]*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(logs) == 0 {
		return []*types.ActivityLog{}, nil
	}
	for _, l := range logs {
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *activityLogRepo) ListByTarget(dbc dbctx.Context, targetID uuid.UUID, actions []string, limit int) ([]*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.ActivityLog{}
	if targetID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(dbc.Ctx).Where("target_resource_id = ?", targetID)
	if len(actions) > 0 {
		q = q.Where("action IN ?", actions)
	}
	if err := q.Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityLogRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ActivityLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.ActivityLog{}
	if limit <= 0 {
		limit = 100
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
