package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/media"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/logpayload"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type SealTagRequest struct {
	Barcode string `json:"barcode"`
	Method  string `json:"method"`
	// Image is base64 (optionally a data URI) or an existing object URL.
	Image string `json:"image,omitempty"`
}

type CreateSessionRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	// TripDetails accepts flat field names or the nested section shape.
	TripDetails map[string]any   `json:"tripDetails"`
	SealTags    []SealTagRequest `json:"sealTags"`
	// Images maps image field names to one image or a list of images.
	Images  map[string]any `json:"images,omitempty"`
	QRCodes map[string]any `json:"qrCodes,omitempty"`
}

type CreateSessionResponse struct {
	Session       *types.Session   `json:"session"`
	Seal          *types.Seal      `json:"seal"`
	SealTags      []*types.SealTag `json:"seal_tags"`
	TransactionID uuid.UUID        `json:"transaction_id"`
	CoinsLeft     int64            `json:"coins_left"`
}

type UpdateTripDetailsRequest struct {
	TripDetails map[string]any `json:"tripDetails"`
	Images      map[string]any `json:"images,omitempty"`
}

type UpdateTripDetailsResponse struct {
	View          *SessionView `json:"view"`
	ChangedFields []string     `json:"changed_fields"`
}

type ListSessionsRequest struct {
	Status string
	Limit  int
	Offset int
}

type SessionPage struct {
	Sessions []*types.Session `json:"sessions"`
	Total    int64            `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type SessionService interface {
	Create(dbc dbctx.Context, req CreateSessionRequest) (*CreateSessionResponse, error)
	List(dbc dbctx.Context, req ListSessionsRequest) (*SessionPage, error)
	Get(dbc dbctx.Context, sessionID uuid.UUID) (*SessionView, error)
	UpdateTripDetails(dbc dbctx.Context, sessionID uuid.UUID, req UpdateTripDetailsRequest) (*UpdateTripDetailsResponse, error)
	FieldTimestamps(dbc dbctx.Context, sessionID uuid.UUID) ([]fieldledger.Provenance, error)
}

type sessionService struct {
	log      *logger.Logger
	repos    repos.Set
	access   AccessService
	sessions domainagg.SessionAggregate
	media    *media.Processor
	reader   *tripReader
	notifier TripNotifier
	now      func() time.Time
}

func NewSessionService(
	baseLog *logger.Logger,
	set repos.Set,
	accessSvc AccessService,
	sessions domainagg.SessionAggregate,
	images *media.Processor,
	resolver *fieldledger.Resolver,
	notifier TripNotifier,
) SessionService {
	log := baseLog.With("service", "SessionService")
	return &sessionService{
		log:      log,
		repos:    set,
		access:   accessSvc,
		sessions: sessions,
		media:    images,
		reader:   newTripReader(log, set, sessions, resolver),
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *sessionService) Create(dbc dbctx.Context, req CreateSessionRequest) (*CreateSessionResponse, error) {
	actor, _, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	op, err := s.access.OperatorFacts(dbc, actor.UserID)
	if err != nil {
		return nil, err
	}
	if d := access.Decide(actor, access.Facts{Operator: op}, access.ActionCreate); !d.Allowed {
		s.log.Debug("Session create denied", "actor_id", actor.UserID, "rule", d.Rule)
		if d.Rule == "create.no_coins" {
			return nil, apierr.PreconditionFailed(d.Reason)
		}
		return nil, apierr.Forbidden(d.Reason)
	}

	details, err := parseTripDetails(req.TripDetails)
	if err != nil {
		return nil, err
	}
	if len(req.SealTags) == 0 {
		return nil, apierr.Validation("at least one seal tag is required")
	}

	sessionID := uuid.New()
	prefix := "sessions/" + sessionID.String()
	tags, err := s.sealTagInputs(dbc, prefix, req.SealTags)
	if err != nil {
		return nil, err
	}
	images, err := s.imageRefs(dbc, prefix, req.Images)
	if err != nil {
		return nil, err
	}

	res, err := s.sessions.Create(dbc.Ctx, domainagg.CreateSessionInput{
		SessionID:   sessionID,
		OperatorID:  actor.UserID,
		CompanyID:   *actor.CompanyID,
		Source:      req.Source,
		Destination: req.Destination,
		Details:     details,
		SealTags:    tags,
		Images:      images,
		QRCodes:     req.QRCodes,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, apierr.FromAggregate(err)
	}
	s.log.Info("Session created", "session_id", res.Session.ID, "operator_id", actor.UserID, "seal_tags", len(res.SealTags))

	out := &CreateSessionResponse{
		Session:       res.Session,
		Seal:          res.Seal,
		SealTags:      res.SealTags,
		TransactionID: res.TransactionID,
		CoinsLeft:     res.CoinsLeft,
	}
	s.notifier.SessionEvent(dbc.Ctx, res.Session.ID, realtime.SSEEventSessionCreated, res.Session)
	s.notifier.UserEvent(dbc.Ctx, res.Session.CompanyID, realtime.SSEEventSessionCreated, res.Session)
	return out, nil
}

func (s *sessionService) List(dbc dbctx.Context, req ListSessionsRequest) (*SessionPage, error) {
	actor, _, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	opts := repos.SessionListOptions{Limit: req.Limit, Offset: req.Offset}
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if st := strings.ToUpper(strings.TrimSpace(req.Status)); st != "" {
		status := types.SessionStatus(st)
		if status.Rank() == 0 {
			return nil, apierr.Validation(fmt.Sprintf("unknown status %q", req.Status))
		}
		opts.Status = string(status)
	}

	scope, err := s.access.ListScope(dbc, actor)
	if err != nil {
		return nil, err
	}
	rows, total, err := s.repos.Sessions.List(dbc, scope, opts)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list sessions: %w", err))
	}

	// The scope is a coarse filter; every row still passes the read rule.
	out := make([]*types.Session, 0, len(rows))
	for _, row := range rows {
		facts, err := s.access.SessionFacts(dbc, row)
		if err != nil {
			return nil, err
		}
		if d := access.CanRead(actor, facts); d.Allowed {
			out = append(out, row)
		} else {
			total--
		}
	}
	if total < int64(len(out)) {
		total = int64(len(out))
	}
	return &SessionPage{Sessions: out, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

func (s *sessionService) Get(dbc dbctx.Context, sessionID uuid.UUID) (*SessionView, error) {
	_, sess, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.reader.view(dbc, sess)
}

func (s *sessionService) UpdateTripDetails(dbc dbctx.Context, sessionID uuid.UUID, req UpdateTripDetailsRequest) (*UpdateTripDetailsResponse, error) {
	actor, _, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionModify)
	if err != nil {
		return nil, err
	}
	changes, err := flattenTripDetails(req.TripDetails)
	if err != nil {
		return nil, err
	}
	images, err := s.imageRefs(dbc, "sessions/"+sessionID.String(), req.Images)
	if err != nil {
		return nil, err
	}

	res, err := s.sessions.UpdateTripDetails(dbc.Ctx, domainagg.UpdateTripDetailsInput{
		SessionID: sessionID,
		ActorID:   actor.UserID,
		Changes:   changes,
		Images:    images,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, apierr.FromAggregate(err)
	}
	view, err := s.reader.view(dbc, res.Session)
	if err != nil {
		return nil, err
	}
	changed := res.ChangedFields
	if changed == nil {
		changed = []string{}
	}
	if len(changed) > 0 {
		s.log.Info("Trip details updated", "session_id", sessionID, "actor_id", actor.UserID, "fields", changed)
		s.notifier.SessionEvent(dbc.Ctx, sessionID, realtime.SSEEventSessionUpdated, map[string]any{
			"session_id":     sessionID,
			"changed_fields": changed,
		})
	}
	return &UpdateTripDetailsResponse{View: view, ChangedFields: changed}, nil
}

func (s *sessionService) FieldTimestamps(dbc dbctx.Context, sessionID uuid.UUID) ([]fieldledger.Provenance, error) {
	_, sess, err := s.access.AuthorizeSession(dbc, sessionID, access.ActionRead)
	if err != nil {
		return nil, err
	}
	return s.reader.provenance(dbc, sess)
}

func (s *sessionService) sealTagInputs(dbc dbctx.Context, prefix string, in []SealTagRequest) ([]domainagg.SealTagInput, error) {
	out := make([]domainagg.SealTagInput, len(in))
	var uploads []media.Upload
	var uploadIdx []int
	for i, t := range in {
		out[i] = domainagg.SealTagInput{Barcode: t.Barcode, Method: t.Method}
		img := strings.TrimSpace(t.Image)
		switch {
		case img == "":
		case isImageReference(img):
			out[i].ImageRef = img
		default:
			uploads = append(uploads, media.Upload{Name: "seal-" + strings.TrimSpace(t.Barcode), Raw: img})
			uploadIdx = append(uploadIdx, i)
		}
	}
	stored, err := s.media.Process(dbc.Ctx, prefix+"/seal-tags", uploads)
	if err != nil {
		return nil, err
	}
	for j, st := range stored {
		i := uploadIdx[j]
		if st.Inline {
			out[i].InlineImage = &domainagg.InlineImage{Data: st.Data, ContentType: st.ContentType}
			continue
		}
		out[i].ImageRef = st.Ref
	}
	return out, nil
}

// imageRefs uploads any base64 images and returns the field map with every
// value replaced by its reference.
func (s *sessionService) imageRefs(dbc dbctx.Context, prefix string, in map[string]any) (map[string]any, error) {
	if len(in) == 0 {
		return nil, nil
	}
	type slot struct {
		field string
		idx   int
		list  bool
	}
	out := make(map[string]any, len(in))
	var uploads []media.Upload
	var slots []slot

	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := trip.LookupField(name)
		if !ok || !f.IsImage() {
			return nil, apierr.Validation(fmt.Sprintf("unknown image field %q", name))
		}
		var values []string
		list := f.Kind == trip.KindImageList
		switch v := in[name].(type) {
		case nil:
			continue
		case string:
			values = []string{v}
		case []any:
			for _, e := range v {
				str, ok := e.(string)
				if !ok {
					return nil, apierr.Validation(fmt.Sprintf("%s must contain strings", name))
				}
				values = append(values, str)
			}
		case []string:
			values = v
		default:
			return nil, apierr.Validation(fmt.Sprintf("%s must be a string or a list of strings", name))
		}
		if !list && len(values) > 1 {
			return nil, apierr.Validation(fmt.Sprintf("%s takes a single image", name))
		}
		refs := make([]string, len(values))
		for i, raw := range values {
			raw = strings.TrimSpace(raw)
			if raw == "" || isImageReference(raw) {
				refs[i] = raw
				continue
			}
			uploads = append(uploads, media.Upload{Name: f.Name, Raw: raw})
			slots = append(slots, slot{field: f.Name, idx: i, list: list})
		}
		if list {
			out[f.Name] = refs
		} else if len(refs) == 1 {
			out[f.Name] = refs[0]
		}
	}

	stored, err := s.media.Process(dbc.Ctx, prefix+"/images", uploads)
	if err != nil {
		return nil, err
	}
	for j, st := range stored {
		sl := slots[j]
		if sl.list {
			out[sl.field].([]string)[sl.idx] = st.Ref
			continue
		}
		out[sl.field] = st.Ref
	}
	for name, v := range out {
		if refs, ok := v.([]string); ok {
			out[name] = compactRefs(refs)
		}
	}
	return out, nil
}

func compactRefs(refs []string) []any {
	out := make([]any, 0, len(refs))
	for _, r := range refs {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func isImageReference(s string) bool {
	for _, p := range []string{"https://", "http://", "gs://"} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// flattenTripDetails maps submitted detail values to canonical field names.
func flattenTripDetails(in map[string]any) (map[string]string, error) {
	out := map[string]string{}
	var walk func(prefix string, m map[string]any) error
	walk = func(prefix string, m map[string]any) error {
		for k, v := range m {
			name := k
			if prefix != "" {
				name = prefix + "." + k
			}
			if nested, ok := v.(map[string]any); ok {
				if err := walk(name, nested); err != nil {
					return err
				}
				continue
			}
			f, ok := trip.LookupField(name)
			if !ok || f.IsImage() {
				return apierr.Validation(fmt.Sprintf("unknown trip detail field %q", name))
			}
			out[f.Key()] = detailString(v)
		}
		return nil
	}
	if err := walk("", in); err != nil {
		return nil, err
	}
	return out, nil
}

func detailString(v any) string {
	switch t := v.(type) {
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return logpayload.Stringify(v)
	}
}

func parseTripDetails(in map[string]any) (trip.TripDetails, error) {
	var d trip.TripDetails
	flat, err := flattenTripDetails(in)
	if err != nil {
		return d, err
	}
	for name, v := range flat {
		f, _ := trip.LookupField(name)
		if err := f.Set(&d, v); err != nil {
			return d, apierr.Validation(err.Error())
		}
	}
	return d, nil
}
