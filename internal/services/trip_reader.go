package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/lifecycle"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/sealcheck"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// SessionView is the read model of one session.
type SessionView struct {
	Session       *types.Session    `json:"session"`
	TripDetails   map[string]string `json:"trip_details"`
	DetailSources map[string]string `json:"trip_detail_sources,omitempty"`
	Images        map[string]any    `json:"images"`
	Seal          *types.Seal       `json:"seal,omitempty"`
	SealRepaired  bool              `json:"seal_repaired,omitempty"`
	SealTags      []*types.SealTag  `json:"seal_tags"`
	Editable      bool              `json:"editable"`
}

// SealComparison is the reconciliation of operator seals with guard scans.
type SealComparison struct {
	SessionID      uuid.UUID                   `json:"session_id"`
	Status         types.SessionStatus         `json:"status"`
	Seal           *types.Seal                 `json:"seal,omitempty"`
	OperatorSeals  []sealcheck.OperatorSeal    `json:"operator_seals"`
	GuardScans     []sealcheck.GuardScanRecord `json:"guard_scans"`
	Classification sealcheck.Classification    `json:"classification"`
	Legacy         bool                        `json:"legacy,omitempty"`
	AllMatched     bool                        `json:"all_matched"`
}

// tripReader assembles read models shared by several services.
type tripReader struct {
	log      *logger.Logger
	repos    repos.Set
	sessions domainagg.SessionAggregate
	resolver *fieldledger.Resolver
}

var detailLogActions = []string{audit.ActionCreate, audit.ActionUpdate}

func newTripReader(log *logger.Logger, set repos.Set, sessions domainagg.SessionAggregate, resolver *fieldledger.Resolver) *tripReader {
	return &tripReader{log: log, repos: set, sessions: sessions, resolver: resolver}
}

// ensureSeal returns the session seal, repairing a missing one for sessions
// past PENDING.
func (r *tripReader) ensureSeal(dbc dbctx.Context, s *types.Session) (*types.Seal, bool, error) {
	seal, err := r.repos.Seals.GetBySessionID(dbc, s.ID)
	if err != nil {
		return nil, false, apierr.Internal(fmt.Errorf("load seal: %w", err))
	}
	if seal != nil || s.Status == types.SessionPending || r.sessions == nil {
		return seal, false, nil
	}
	res, err := r.sessions.EnsureSeal(dbc.Ctx, s.ID)
	if err != nil {
		return nil, false, apierr.FromAggregate(err)
	}
	if res.Repaired {
		r.log.Warn("Repaired missing seal", "session_id", s.ID, "seal_id", res.Seal.ID)
	}
	return res.Seal, res.Repaired, nil
}

func (r *tripReader) detailLogs(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.ActivityLog, error) {
	logs, err := r.repos.ActivityLogs.ListByTarget(dbc, sessionID, detailLogActions, 0)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load activity logs: %w", err))
	}
	return logs, nil
}

func (r *tripReader) view(dbc dbctx.Context, s *types.Session) (*SessionView, error) {
	seal, repaired, err := r.ensureSeal(dbc, s)
	if err != nil {
		return nil, err
	}
	logs, err := r.detailLogs(dbc, s.ID)
	if err != nil {
		return nil, err
	}
	tags, err := r.repos.SealTags.ListBySessionID(dbc, s.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load seal tags: %w", err))
	}
	resolved := fieldledger.ResolveDetails(s, logs)
	return &SessionView{
		Session:       s,
		TripDetails:   resolved.Details.Snapshot(),
		DetailSources: resolved.Sources,
		Images:        fieldledger.ResolveImages(logs),
		Seal:          seal,
		SealRepaired:  repaired,
		SealTags:      tags,
		Editable:      lifecycle.Editable(s.Status),
	}, nil
}

func (r *tripReader) comparison(dbc dbctx.Context, s *types.Session) (*SealComparison, error) {
	seal, _, err := r.ensureSeal(dbc, s)
	if err != nil {
		return nil, err
	}
	tags, err := r.repos.SealTags.ListBySessionID(dbc, s.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load seal tags: %w", err))
	}
	guardTags, err := r.repos.GuardSealTags.ListBySessionID(dbc, s.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load guard scans: %w", err))
	}
	var verification []byte
	if seal != nil {
		verification = seal.VerificationData
	}
	operator := sealcheck.OperatorSeals(tags)
	guard, legacy := sealcheck.GuardRecords(guardTags, tags, verification)
	if guard == nil {
		guard = []sealcheck.GuardScanRecord{}
	}
	c := sealcheck.Classify(operator, guard)
	return &SealComparison{
		SessionID:      s.ID,
		Status:         s.Status,
		Seal:           seal,
		OperatorSeals:  operator,
		GuardScans:     guard,
		Classification: c,
		Legacy:         legacy,
		AllMatched:     c.AllMatched(),
	}, nil
}

func (r *tripReader) provenance(dbc dbctx.Context, s *types.Session) ([]fieldledger.Provenance, error) {
	ledger, err := r.repos.FieldTimestamps.ListBySessionID(dbc, s.ID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load field timestamps: %w", err))
	}
	logs, err := r.detailLogs(dbc, s.ID)
	if err != nil {
		return nil, err
	}
	return r.resolver.ResolveAll(fieldledger.Inputs{Session: s, Ledger: ledger, Logs: logs}), nil
}
