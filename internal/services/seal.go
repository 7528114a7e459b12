package services

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/media"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
)

type GuardScanRequest struct {
	Barcode string `json:"barcode"`
	Method  string `json:"method"`
	Image   string `json:"image,omitempty"`
}

type GuardScanResponse struct {
	Outcome    string              `json:"outcome"`
	SealTag    *types.SealTag      `json:"seal_tag"`
	GuardTag   *types.GuardSealTag `json:"guard_seal_tag"`
	Comparison *SealComparison     `json:"comparison"`
}

type VerifyRequest struct {
	// Verification is free-form guard data merged into the seal's verification record.
	Verification map[string]any `json:"verification,omitempty"`
}

type VerifyResponse struct {
	Session      *types.Session `json:"session"`
	Seal         *types.Seal    `json:"seal"`
	SealRepaired bool           `json:"seal_repaired,omitempty"`
	Matched      []string       `json:"matched"`
	Mismatched   []string       `json:"mismatched"`
	Missing      []string       `json:"missing"`
}

type SealService interface {
	GuardScan(dbc dbctx.Context, sessionID uuid.UUID, req GuardScanRequest) (*GuardScanResponse, error)
	Comparison(dbc dbctx.Context, sessionID uuid.UUID) (*SealComparison, error)
	Verify(dbc dbctx.Context, sessionID uuid.UUID, req VerifyRequest) (*VerifyResponse, error)
}

type sealService struct {
	log      *logger.Logger
	access   AccessService
	scans    domainagg.SealScanAggregate
	sessions domainagg.SessionAggregate
	media    *media.Processor
	reader   *tripReader
	notifier TripNotifier
	now      func() time.Time
}

func NewSealService(
	baseLog *logger.Logger,
	set repos.Set,
	accessSvc AccessService,
	scans domainagg.SealScanAggregate,
	sessions domainagg.SessionAggregate,
	images *media.Processor,
	resolver *fieldledger.Resolver,
	notifier TripNotifier,
) SealService {
	log := baseLog.With("service", "SealService")
	return &sealService{
		log:      log,
		access:   accessSvc,
		scans:    scans,
		sessions: sessions,
		media:    images,
		reader:   newTripReader(log, set, sessions, resolver),
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *sealService) GuardScan(dbc dbctx.Context, sessionID uuid.UUID, req GuardScanRequest) (*GuardScanResponse, error) {
	actor, sess, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionGuardScan)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Barcode) == "" {
		return nil, apierr.Validation("barcode is required")
	}
	if sess.Status == types.SessionCompleted {
		return nil, apierr.Conflict("session verification is already complete")
	}

	in := domainagg.GuardScanInput{
		SessionID: sessionID,
		GuardID:   actor.UserID,
		Barcode:   req.Barcode,
		Method:    req.Method,
		ScannedAt: s.now(),
	}
	if img := strings.TrimSpace(req.Image); img != "" {
		if isImageReference(img) {
			in.ImageRef = img
		} else {
			stored, err := s.media.Process(dbc.Ctx, "sessions/"+sessionID.String()+"/guard-scans",
				[]media.Upload{{Name: "guard-" + strings.TrimSpace(req.Barcode), Raw: img}})
			if err != nil {
				return nil, err
			}
			if stored[0].Inline {
				in.InlineImage = &domainagg.InlineImage{Data: stored[0].Data, ContentType: stored[0].ContentType}
			} else {
				in.ImageRef = stored[0].Ref
			}
		}
	}

	res, err := s.scans.IngestGuardScan(dbc.Ctx, in)
	if err != nil {
		return nil, apierr.FromAggregate(err)
	}
	s.log.Info("Guard scan recorded", "session_id", sessionID, "guard_id", actor.UserID, "barcode", res.SealTag.Barcode, "outcome", res.Outcome)

	cmp, err := s.reader.comparison(dbc, sess)
	if err != nil {
		return nil, err
	}
	s.notifier.SessionEvent(dbc.Ctx, sessionID, realtime.SSEEventGuardScanned, map[string]any{
		"session_id": sessionID,
		"barcode":    res.SealTag.Barcode,
		"outcome":    res.Outcome,
	})
	return &GuardScanResponse{Outcome: res.Outcome, SealTag: res.SealTag, GuardTag: res.GuardTag, Comparison: cmp}, nil
}

func (s *sealService) Comparison(dbc dbctx.Context, sessionID uuid.UUID) (*SealComparison, error) {
	_, sess, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.reader.comparison(dbc, sess)
}

func (s *sealService) Verify(dbc dbctx.Context, sessionID uuid.UUID, req VerifyRequest) (*VerifyResponse, error) {
	actor, _, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionVerify)
	if err != nil {
		return nil, err
	}
	res, err := s.sessions.CompleteVerification(dbc.Ctx, domainagg.CompleteVerificationInput{
		SessionID:    sessionID,
		GuardID:      actor.UserID,
		Verification: req.Verification,
		CompletedAt:  s.now(),
	})
	if err != nil {
		return nil, apierr.FromAggregate(err)
	}
	if res.SealRepaired {
		s.log.Warn("Seal repaired during verification", "session_id", sessionID)
	}
	s.log.Info("Session verified", "session_id", sessionID, "guard_id", actor.UserID,
		"matched", len(res.Matched), "mismatched", len(res.Mismatched), "missing", len(res.Missing))

	out := &VerifyResponse{
		Session:      res.Session,
		Seal:         res.Seal,
		SealRepaired: res.SealRepaired,
		Matched:      nonNilStrings(res.Matched),
		Mismatched:   nonNilStrings(res.Mismatched),
		Missing:      nonNilStrings(res.Missing),
	}
	s.notifier.SessionEvent(dbc.Ctx, sessionID, realtime.SSEEventSessionCompleted, out)
	if res.Session != nil {
		s.notifier.UserEvent(dbc.Ctx, res.Session.CreatedByID, realtime.SSEEventSessionCompleted, map[string]any{"session_id": sessionID})
	}
	return out, nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
