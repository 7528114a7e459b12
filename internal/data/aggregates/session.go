package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/coins"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/lifecycle"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/logpayload"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/sealcheck"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

// SessionCreationCost is the coin price of opening a session.
const SessionCreationCost int64 = 1

type SessionAggregateDeps struct {
	Base BaseDeps

	Sessions  repos.SessionRepo
	Seals     repos.SealRepo
	SealTags  repos.SealTagRepo
	GuardTags repos.GuardSealTagRepo
	Users     repos.UserRepo
	CoinTxns  repos.CoinTransactionRepo
	Logs      repos.ActivityLogRepo
	Ledger    *fieldledger.Recorder

	// StrictSealGating refuses completion unless every operator seal was matched by a guard scan.
	StrictSealGating bool
}

type sessionAggregate struct {
	deps SessionAggregateDeps
}

func NewSessionAggregate(deps SessionAggregateDeps) domainagg.SessionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &sessionAggregate{deps: deps}
}

func (a *sessionAggregate) Contract() domainagg.Contract {
	return domainagg.SessionAggregateContract
}

func (a *sessionAggregate) configured() bool {
	d := a.deps
	return d.Sessions != nil && d.Seals != nil && d.SealTags != nil && d.GuardTags != nil &&
		d.Users != nil && d.CoinTxns != nil && d.Logs != nil
}

func (a *sessionAggregate) Create(ctx context.Context, in domainagg.CreateSessionInput) (domainagg.CreateSessionResult, error) {
	const op = "Trip.Session.Create"
	var out domainagg.CreateSessionResult

	if in.OperatorID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing operator", nil)
	}
	if in.CompanyID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "operator has no company", nil)
	}
	source := strings.TrimSpace(in.Source)
	destination := strings.TrimSpace(in.Destination)
	if source == "" || destination == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "source and destination are required", nil)
	}
	if err := in.Details.Validate(); err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if len(in.SealTags) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "at least one seal tag is required", nil)
	}
	seen := map[string]bool{}
	for _, st := range in.SealTags {
		key := trip.NormalizeBarcode(st.Barcode)
		if key == "" {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "seal tag barcode is required", nil)
		}
		if seen[key] {
			return out, domainagg.NewError(domainagg.CodeConflict, op, fmt.Sprintf("duplicate seal tag %q", strings.TrimSpace(st.Barcode)), nil)
		}
		seen[key] = true
	}
	imageFields, err := imageChanges(in.Images)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "session aggregate repos not configured", nil)
	}

	sessionID := in.SessionID
	if sessionID == uuid.Nil {
		sessionID = uuid.New()
	}
	createdAt := nowOr(in.CreatedAt)

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		ok, err := a.deps.Users.DebitCoins(dbc, in.OperatorID, SessionCreationCost)
		if err != nil {
			return err
		}
		if !ok {
			return PreconditionError("insufficient coins to create a session")
		}

		session := &trip.Session{
			ID:          sessionID,
			Status:      lifecycle.InitialStatus(),
			CompanyID:   in.CompanyID,
			CreatedByID: in.OperatorID,
			Source:      source,
			Destination: destination,
			TripDetails: in.Details,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		if _, err := a.deps.Sessions.Create(dbc, []*trip.Session{session}); err != nil {
			return err
		}

		operatorID := in.OperatorID
		tags := make([]*trip.SealTag, 0, len(in.SealTags))
		tagData := &logpayload.SealTagData{Methods: map[string]string{}, Timestamps: map[string]time.Time{}}
		inline := map[string]logpayload.SealTagImage{}
		for _, st := range in.SealTags {
			barcode := strings.TrimSpace(st.Barcode)
			tag := &trip.SealTag{
				ID:          uuid.New(),
				SessionID:   sessionID,
				Barcode:     barcode,
				Method:      trip.NormalizeMethod(st.Method),
				ImageRef:    strings.TrimSpace(st.ImageRef),
				CreatedByID: &operatorID,
				CreatedAt:   createdAt,
				UpdatedAt:   createdAt,
			}
			tags = append(tags, tag)
			tagData.IDs = append(tagData.IDs, barcode)
			tagData.Methods[barcode] = tag.Method
			tagData.Timestamps[barcode] = createdAt
			if st.InlineImage != nil && st.InlineImage.Data != "" {
				inline[barcode] = logpayload.SealTagImage{Data: st.InlineImage.Data, ContentType: st.InlineImage.ContentType}
			}
		}
		if _, err := a.deps.SealTags.Create(dbc, tags); err != nil {
			if isUniqueViolation(err) {
				return ConflictError("duplicate seal tag barcode")
			}
			return err
		}

		seal := &trip.Seal{
			ID:        uuid.New(),
			SessionID: sessionID,
			Barcode:   tags[0].Barcode,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		}
		if _, err := a.deps.Seals.Create(dbc, seal); err != nil {
			return err
		}

		fields := populatedDetailFields(&in.Details)
		fields = append(fields, imageFields...)
		recorded := a.deps.Ledger.Record(dbc, sessionID, in.OperatorID, fields, createdAt)

		txn := &coins.CoinTransaction{
			ID:         uuid.New(),
			FromUserID: in.OperatorID,
			ToUserID:   in.OperatorID,
			Amount:     SessionCreationCost,
			Reason:     coins.ReasonSessionCreation,
			Notes:      sessionID.String(),
			CreatedAt:  createdAt,
		}
		if _, err := a.deps.CoinTxns.Create(dbc, []*coins.CoinTransaction{txn}); err != nil {
			return err
		}

		detailsEntry := logpayload.TripDetailsEntry(
			sessionID.String(),
			in.Details.Payload(),
			logpayload.Timestamps(fields, createdAt),
			in.QRCodes,
			tagData,
		)
		detailsEntry["source"] = source
		detailsEntry["destination"] = destination
		imagesEntry := logpayload.ImagesEntry(sessionID.String(), imageMap(in.Images), inline)

		entries := make([]*audit.ActivityLog, 0, 2)
		for i, p := range []logpayload.Payload{detailsEntry, imagesEntry} {
			// Offset the images entry so the pair orders deterministically.
			l, err := newActivityLog(in.OperatorID, audit.ActionCreate, audit.ResourceSession, sessionID, p, createdAt.Add(time.Duration(i)*time.Microsecond))
			if err != nil {
				return err
			}
			entries = append(entries, l)
		}
		if _, err := a.deps.Logs.Create(dbc, entries); err != nil {
			return err
		}

		operator, err := a.deps.Users.GetByID(dbc, in.OperatorID)
		if err != nil {
			return err
		}
		out = domainagg.CreateSessionResult{
			Session:       session,
			Seal:          seal,
			SealTags:      tags,
			TransactionID: txn.ID,
			LedgerFields:  recorded,
		}
		if operator != nil {
			out.CoinsLeft = operator.Coins
		}
		return nil
	})
	if err != nil {
		return domainagg.CreateSessionResult{}, err
	}
	return out, nil
}

func (a *sessionAggregate) UpdateTripDetails(ctx context.Context, in domainagg.UpdateTripDetailsInput) (domainagg.UpdateTripDetailsResult, error) {
	const op = "Trip.Session.UpdateTripDetails"
	var out domainagg.UpdateTripDetailsResult

	if in.SessionID == uuid.Nil || in.ActorID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing session or actor", nil)
	}
	if len(in.Changes) == 0 && len(in.Images) == 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "no changes submitted", nil)
	}
	if _, err := imageChanges(in.Images); err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "session aggregate repos not configured", nil)
	}
	at := nowOr(in.UpdatedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Sessions.LockByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return NotFoundError("session not found: " + in.SessionID.String())
		}
		if err := lifecycle.RequireEditable(s.Status); err != nil {
			return err
		}

		next := s.TripDetails
		for name, raw := range in.Changes {
			f, ok := trip.LookupField(name)
			if !ok || f.IsImage() {
				return ValidationError(fmt.Sprintf("unknown trip detail field %q", name))
			}
			if err := f.Set(&next, raw); err != nil {
				return ValidationError(err.Error())
			}
		}
		changed := fieldledger.ChangedFields(s.TripDetails.Snapshot(), next.Snapshot())

		var changedImages map[string]any
		if len(in.Images) > 0 {
			logs, err := a.deps.Logs.ListByTarget(dbc, s.ID, []string{audit.ActionCreate, audit.ActionUpdate}, 0)
			if err != nil {
				return err
			}
			changedImages = diffImages(fieldledger.ResolveImages(logs), in.Images)
			for name := range changedImages {
				changed = append(changed, trip.CanonicalFieldName(name))
			}
			sort.Strings(changed)
		}

		out.Session = s
		if len(changed) == 0 {
			return nil
		}

		updates := columnUpdates(&next, changed)
		if len(updates) > 0 {
			updates["updated_at"] = at
			if err := a.deps.Sessions.UpdateFields(dbc, s.ID, updates); err != nil {
				return err
			}
		}
		a.deps.Ledger.Record(dbc, s.ID, in.ActorID, changed, at)

		entry := logpayload.TripDetailsEntry(s.ID.String(), next.Payload(), logpayload.Timestamps(changed, at), nil, nil)
		if len(changedImages) > 0 {
			entry[logpayload.KeyImages] = changedImages
		}
		entry["changedFields"] = changed
		l, err := newActivityLog(in.ActorID, audit.ActionUpdate, audit.ResourceSession, s.ID, entry, at)
		if err != nil {
			return err
		}
		if _, err := a.deps.Logs.Create(dbc, []*audit.ActivityLog{l}); err != nil {
			return err
		}

		s.TripDetails = next
		if len(updates) > 0 {
			s.UpdatedAt = at
		}
		out.ChangedFields = changed
		return nil
	})
	if err != nil {
		return domainagg.UpdateTripDetailsResult{}, err
	}
	return out, nil
}

func (a *sessionAggregate) EnsureSeal(ctx context.Context, sessionID uuid.UUID) (domainagg.EnsureSealResult, error) {
	const op = "Trip.Session.EnsureSeal"
	var out domainagg.EnsureSealResult
	if sessionID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing session id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "session aggregate repos not configured", nil)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Sessions.GetByID(dbc, sessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return NotFoundError("session not found: " + sessionID.String())
		}
		seal, repaired, err := a.ensureSeal(dbc, s, false)
		if err != nil {
			return err
		}
		out = domainagg.EnsureSealResult{Seal: seal, Repaired: repaired}
		return nil
	})
	if err != nil {
		return domainagg.EnsureSealResult{}, err
	}
	if out.Repaired {
		a.deps.Base.Log.Warn("Repaired missing seal", "session_id", sessionID.String(), "barcode", out.Seal.Barcode)
	}
	return out, nil
}

// ensureSeal returns the session's seal, creating the fallback seal for
// started sessions that lack one. Pending sessions are left alone unless force is set.
func (a *sessionAggregate) ensureSeal(dbc dbctx.Context, s *trip.Session, force bool) (*trip.Seal, bool, error) {
	seal, err := a.deps.Seals.GetBySessionID(dbc, s.ID)
	if err != nil {
		return nil, false, err
	}
	if seal != nil || (s.Status == trip.StatusPending && !force) {
		return seal, false, nil
	}

	tags, err := a.deps.SealTags.ListBySessionID(dbc, s.ID)
	if err != nil {
		return nil, false, err
	}
	barcode := ""
	if ops := sealcheck.OperatorSeals(tags); len(ops) > 0 {
		barcode = ops[0].Barcode
	}
	now := time.Now().UTC()
	seal = &trip.Seal{ID: uuid.New(), SessionID: s.ID, Barcode: barcode, CreatedAt: now, UpdatedAt: now}

	create := func(tx dbctx.Context) error {
		_, err := a.deps.Seals.Create(tx, seal)
		return err
	}
	if dbc.Tx != nil {
		err = dbc.Tx.Transaction(func(sp *gorm.DB) error { return create(dbc.WithTx(sp)) })
	} else {
		err = create(dbc)
	}
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, false, err
		}
		// A concurrent repair won.
		existing, rerr := a.deps.Seals.GetBySessionID(dbc, s.ID)
		if rerr != nil {
			return nil, false, rerr
		}
		return existing, false, nil
	}
	return seal, true, nil
}

func (a *sessionAggregate) CompleteVerification(ctx context.Context, in domainagg.CompleteVerificationInput) (domainagg.CompleteVerificationResult, error) {
	const op = "Trip.Session.CompleteVerification"
	var out domainagg.CompleteVerificationResult

	if in.SessionID == uuid.Nil || in.GuardID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing session or guard", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "session aggregate repos not configured", nil)
	}
	at := nowOr(in.CompletedAt)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		s, err := a.deps.Sessions.LockByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return NotFoundError("session not found: " + in.SessionID.String())
		}
		next, err := lifecycle.Transition(s.Status, lifecycle.EventComplete)
		if err != nil {
			return err
		}
		seal, repaired, err := a.ensureSeal(dbc, s, true)
		if err != nil {
			return err
		}
		if seal == nil {
			return InvariantError("session has no seal")
		}

		tags, err := a.deps.SealTags.ListBySessionID(dbc, s.ID)
		if err != nil {
			return err
		}
		guardTags, err := a.deps.GuardTags.ListBySessionID(dbc, s.ID)
		if err != nil {
			return err
		}
		operator := sealcheck.OperatorSeals(tags)
		records, _ := sealcheck.GuardRecords(guardTags, tags, seal.VerificationData)
		cls := sealcheck.Classify(operator, records)
		if a.deps.StrictSealGating && !cls.AllMatched() {
			return PreconditionError(fmt.Sprintf(
				"seal check incomplete: %d mismatched, %d missing", len(cls.Mismatched), len(cls.Missing)))
		}

		verification := map[string]any(logpayload.Parse(seal.VerificationData))
		for k, v := range in.Verification {
			verification[k] = v
		}
		out.Matched = sealcheck.Barcodes(cls.Matched)
		out.Mismatched = sealcheck.Barcodes(cls.Mismatched)
		out.Missing = sealcheck.OperatorBarcodes(cls.Missing)
		entry := logpayload.VerificationEntry(s.ID.String(), verification, out.Matched, out.Mismatched, out.Missing, at)

		data, err := json.Marshal(entry.Object(logpayload.KeyVerification))
		if err != nil {
			return ValidationError("verification payload is not encodable")
		}
		if err := a.deps.Seals.MarkVerified(dbc, s.ID, in.GuardID, at, data); err != nil {
			return err
		}
		advanced, err := a.deps.Base.CASGuard.AdvanceSessionStatus(dbc, s.ID,
			[]trip.Status{trip.StatusPending, trip.StatusInProgress}, next,
			map[string]any{"updated_at": at})
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(advanced, "session status changed concurrently"); err != nil {
			return err
		}

		l, err := newActivityLog(in.GuardID, audit.ActionVerify, audit.ResourceSession, s.ID, entry, at)
		if err != nil {
			return err
		}
		if _, err := a.deps.Logs.Create(dbc, []*audit.ActivityLog{l}); err != nil {
			return err
		}

		if out.Session, err = a.deps.Sessions.GetByID(dbc, s.ID); err != nil {
			return err
		}
		if out.Seal, err = a.deps.Seals.GetBySessionID(dbc, s.ID); err != nil {
			return err
		}
		out.SealRepaired = repaired
		return nil
	})
	if err != nil {
		return domainagg.CompleteVerificationResult{}, err
	}
	return out, nil
}

// populatedDetailFields lists the canonical names of non-empty detail columns.
func populatedDetailFields(d *trip.TripDetails) []string {
	var out []string
	for _, f := range trip.DetailFieldSpecs() {
		if f.Get(d) != "" {
			out = append(out, f.Key())
		}
	}
	return out
}

// imageChanges validates image field names and returns the canonical names
// of the non-empty ones.
func imageChanges(images map[string]any) ([]string, error) {
	var out []string
	for name, v := range images {
		f, ok := trip.LookupField(name)
		if !ok || !f.IsImage() {
			return nil, fmt.Errorf("unknown image field %q", name)
		}
		if imageEmpty(v) {
			continue
		}
		out = append(out, f.Key())
	}
	sort.Strings(out)
	return out, nil
}

// imageMap keys images by bare field name, the shape image log entries use.
func imageMap(images map[string]any) map[string]any {
	out := make(map[string]any, len(images))
	for name, v := range images {
		f, ok := trip.LookupField(name)
		if !ok || imageEmpty(v) {
			continue
		}
		out[f.Name] = v
	}
	return out
}

func diffImages(current map[string]any, submitted map[string]any) map[string]any {
	out := map[string]any{}
	for name, v := range imageMap(submitted) {
		was, _ := json.Marshal(current[name])
		now, _ := json.Marshal(v)
		if string(was) != string(now) {
			out[name] = v
		}
	}
	return out
}

func imageEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// columnUpdates maps changed canonical fields to typed column values.
func columnUpdates(d *trip.TripDetails, changed []string) map[string]any {
	out := map[string]any{}
	for _, name := range changed {
		f, ok := trip.LookupField(name)
		if !ok || f.Column == "" {
			continue
		}
		v := f.Get(d)
		switch f.Kind {
		case trip.KindFloat:
			n, _ := strconv.ParseFloat(v, 64)
			out[f.Column] = n
		case trip.KindInt:
			n, _ := strconv.Atoi(v)
			out[f.Column] = n
		default:
			out[f.Column] = v
		}
	}
	return out
}
