package trip

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// SessionScope restricts a listing to sessions matching any of the given sets.
// All=true lists everything.
type SessionScope struct {
	All        bool
	CompanyIDs []uuid.UUID
	CreatorIDs []uuid.UUID
	SessionIDs []uuid.UUID
}

func (s SessionScope) Empty() bool {
	return !s.All && len(s.CompanyIDs) == 0 && len(s.CreatorIDs) == 0 && len(s.SessionIDs) == 0
}

type SessionListOptions struct {
	Status string
	Limit  int
	Offset int
}

type SessionRepo interface {
	Create(dbc dbctx.Context, sessions []*types.Session) ([]*types.Session, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	List(dbc dbctx.Context, scope SessionScope, opts SessionListOptions) ([]*types.Session, int64, error)
	ListIDsCreatedBy(dbc dbctx.Context, creatorIDs []uuid.UUID) ([]uuid.UUID, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, sessions []*types.Session) ([]*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sessions) == 0 {
		return []*types.Session{}, nil
	}
	for _, s := range sessions {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.Session
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Session, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Session
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *sessionRepo) List(dbc dbctx.Context, scope SessionScope, opts SessionListOptions) ([]*types.Session, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := []*types.Session{}
	if scope.Empty() {
		return out, 0, nil
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Session{})
	if !scope.All {
		cond := transaction.Where("1 = 0")
		if len(scope.CompanyIDs) > 0 {
			cond = cond.Or("company_id IN ?", scope.CompanyIDs)
		}
		if len(scope.CreatorIDs) > 0 {
			cond = cond.Or("created_by_id IN ?", scope.CreatorIDs)
		}
		if len(scope.SessionIDs) > 0 {
			cond = cond.Or("id IN ?", scope.SessionIDs)
		}
		q = q.Where(cond)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	q = q.Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *sessionRepo) ListIDsCreatedBy(dbc dbctx.Context, creatorIDs []uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if len(creatorIDs) == 0 {
		return ids, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Session{}).
		Where("created_by_id IN ?", creatorIDs).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
