package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
)

const maxCommentRunes = 2000

type AddCommentRequest struct {
	Message string `json:"message"`
	Urgency string `json:"urgency,omitempty"`
}

type CommentService interface {
	Add(dbc dbctx.Context, sessionID uuid.UUID, req AddCommentRequest) (*types.Comment, error)
	List(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Comment, error)
}

type commentService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	access   AccessService
	notifier TripNotifier
	now      func() time.Time
}

func NewCommentService(db *gorm.DB, baseLog *logger.Logger, set repos.Set, accessSvc AccessService, notifier TripNotifier) CommentService {
	return &commentService{
		db:       db,
		log:      baseLog.With("service", "CommentService"),
		repos:    set,
		access:   accessSvc,
		notifier: notifier,
		now:      time.Now,
	}
}

func normalizeUrgency(u string) (string, bool) {
	switch v := strings.ToUpper(strings.TrimSpace(u)); v {
	case "":
		return trip.UrgencyNA, true
	case trip.UrgencyNA, trip.UrgencyLow, trip.UrgencyMedium, trip.UrgencyHigh:
		return v, true
	default:
		return "", false
	}
}

func (s *commentService) Add(dbc dbctx.Context, sessionID uuid.UUID, req AddCommentRequest) (*types.Comment, error) {
	actor, _, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionComment)
	if err != nil {
		return nil, err
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, apierr.Validation("message is required")
	}
	if utf8.RuneCountInString(msg) > maxCommentRunes {
		return nil, apierr.Validation(fmt.Sprintf("message exceeds %d characters", maxCommentRunes))
	}
	urgency, ok := normalizeUrgency(req.Urgency)
	if !ok {
		return nil, apierr.Validation(fmt.Sprintf("unknown urgency %q", req.Urgency))
	}

	now := s.now().UTC()
	c := &types.Comment{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    actor.UserID,
		Message:   msg,
		Urgency:   urgency,
		CreatedAt: now,
	}
	details, err := json.Marshal(map[string]any{"commentId": c.ID, "urgency": urgency})
	if err != nil {
		return nil, apierr.Internal(err)
	}
	err = s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := s.repos.Comments.Create(inner, c); err != nil {
			return err
		}
		_, err := s.repos.ActivityLogs.Create(inner, []*types.ActivityLog{{
			ID:                 uuid.New(),
			UserID:             actor.UserID,
			Action:             audit.ActionComment,
			TargetResourceID:   &c.SessionID,
			TargetResourceType: audit.ResourceSession,
			Details:            datatypes.JSON(details),
			CreatedAt:          now,
		}})
		return err
	})
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("add comment: %w", err))
	}
	s.notifier.SessionEvent(dbc.Ctx, sessionID, realtime.SSEEventCommentAdded, c)
	return c, nil
}

func (s *commentService) List(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Comment, error) {
	if _, _, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionRead); err != nil {
		return nil, err
	}
	rows, err := s.repos.Comments.ListBySessionID(dbc, sessionID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list comments: %w", err))
	}
	return rows, nil
}
