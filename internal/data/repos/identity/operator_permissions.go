package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type OperatorPermissionsRepo interface {
	GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.OperatorPermissions, error)
	Upsert(dbc dbctx.Context, perms *types.OperatorPermissions) error
}

type operatorPermissionsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOperatorPermissionsRepo(db *gorm.DB, baseLog *logger.Logger) OperatorPermissionsRepo {
	return &operatorPermissionsRepo{db: db, log: baseLog.With("repo", "OperatorPermissionsRepo")}
}

func (r *operatorPermissionsRepo) GetByUserID(dbc dbctx.Context, userID uuid.UUID) (*types.OperatorPermissions, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.OperatorPermissions
	err := transaction.WithContext(dbc.Ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *operatorPermissionsRepo) Upsert(dbc dbctx.Context, perms *types.OperatorPermissions) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if perms == nil || perms.UserID == uuid.Nil {
		return errors.New("operator permissions require user_id")
	}
	if perms.ID == uuid.Nil {
		perms.ID = uuid.New()
	}
	now := time.Now().UTC()
	if perms.CreatedAt.IsZero() {
		perms.CreatedAt = now
	}
	perms.UpdatedAt = now
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_create", "can_modify", "can_delete", "updated_at"}),
		}).
		Create(perms).Error
}
