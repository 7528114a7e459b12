package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

const reportActivityLimit = 500

// ReportBundle is everything a session report renders from.
type ReportBundle struct {
	GeneratedAt     time.Time                `json:"generated_at"`
	View            *SessionView             `json:"view"`
	Comparison      *SealComparison          `json:"seal_comparison"`
	FieldTimestamps []fieldledger.Provenance `json:"field_timestamps"`
	Comments        []*types.Comment         `json:"comments"`
	Activity        []*types.ActivityLog     `json:"activity"`
	Operator        *types.User              `json:"operator,omitempty"`
	Verifier        *types.User              `json:"verifier,omitempty"`
}

type ReportService interface {
	Bundle(dbc dbctx.Context, sessionID uuid.UUID) (*ReportBundle, error)
}

type reportService struct {
	log    *logger.Logger
	repos  repos.Set
	access AccessService
	reader *tripReader
	now    func() time.Time
}

func NewReportService(
	baseLog *logger.Logger,
	set repos.Set,
	accessSvc AccessService,
	sessions domainagg.SessionAggregate,
	resolver *fieldledger.Resolver,
) ReportService {
	log := baseLog.With("service", "ReportService")
	return &reportService{
		log:    log,
		repos:  set,
		access: accessSvc,
		reader: newTripReader(log, set, sessions, resolver),
		now:    time.Now,
	}
}

func (s *reportService) Bundle(dbc dbctx.Context, sessionID uuid.UUID) (*ReportBundle, error) {
	_, sess, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	out := &ReportBundle{GeneratedAt: s.now().UTC()}
	if out.View, err = s.reader.view(dbc, sess); err != nil {
		return nil, err
	}
	if out.Comparison, err = s.reader.comparison(dbc, sess); err != nil {
		return nil, err
	}
	if out.FieldTimestamps, err = s.reader.provenance(dbc, sess); err != nil {
		return nil, err
	}
	if out.Comments, err = s.repos.Comments.ListBySessionID(dbc, sess.ID); err != nil {
		return nil, apierr.Internal(fmt.Errorf("list comments: %w", err))
	}
	if out.Activity, err = s.repos.ActivityLogs.ListByTarget(dbc, sess.ID, nil, reportActivityLimit); err != nil {
		return nil, apierr.Internal(fmt.Errorf("list activity: %w", err))
	}

	ids := []uuid.UUID{sess.CreatedByID}
	if out.View.Seal != nil && out.View.Seal.VerifiedByID != nil {
		ids = append(ids, *out.View.Seal.VerifiedByID)
	}
	users, err := s.repos.Users.GetByIDs(dbc, ids)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load report users: %w", err))
	}
	for _, u := range users {
		if u.ID == sess.CreatedByID {
			out.Operator = u
		}
		if out.View.Seal != nil && out.View.Seal.VerifiedByID != nil && u.ID == *out.View.Seal.VerifiedByID {
			out.Verifier = u
		}
	}
	return out, nil
}
