package trip

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type CommentRepo interface {
	Create(dbc dbctx.Context, comment *types.Comment) (*types.Comment, error)
	ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Comment, error)
}

type commentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return &commentRepo{db: db, log: baseLog.With("repo", "CommentRepo")}
}

func (r *commentRepo) Create(dbc dbctx.Context, comment *types.Comment) (*types.Comment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if comment == nil {
		return nil, errors.New("comment is required")
	}
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *commentRepo) ListBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Comment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Comment{}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
