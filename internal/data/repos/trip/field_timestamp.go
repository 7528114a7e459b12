package trip

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type FieldTimestampRepo interface {
	// Upsert records the latest write per (session, field). An existing row with
	// a newer timestamp is left in place.
	Upsert(dbc dbctx.Context, rows []*types.FieldTimestamp) error
	ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FieldTimestamp, error)
	GetByFieldNames(dbc dbctx.Context, sessionID uuid.UUID, fieldNames []string) ([]*types.FieldTimestamp, error)
}

type fieldTimestampRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFieldTimestampRepo(db *gorm.DB, baseLog *logger.Logger) FieldTimestampRepo {
	return &fieldTimestampRepo{db: db, log: baseLog.With("repo", "FieldTimestampRepo")}
}

func (r *fieldTimestampRepo) Upsert(dbc dbctx.Context, rows []*types.FieldTimestamp) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.UpdatedAt.IsZero() {
			row.UpdatedAt = now
		}
		row.UpdatedAt = row.UpdatedAt.UTC()
		if row.CreatedAt.IsZero() {
			row.CreatedAt = row.UpdatedAt
		}
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "field_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at", "updated_by_id"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "field_timestamp.updated_at <= excluded.updated_at"},
			}},
		}).
		Create(&rows).Error
}

func (r *fieldTimestampRepo) ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.FieldTimestamp, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.FieldTimestamp{}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("field_name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fieldTimestampRepo) GetByFieldNames(dbc dbctx.Context, sessionID uuid.UUID, fieldNames []string) ([]*types.FieldTimestamp, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.FieldTimestamp{}
	if len(fieldNames) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ? AND field_name IN ?", sessionID, fieldNames).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
