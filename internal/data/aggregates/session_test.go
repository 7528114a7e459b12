package aggregates

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	repotest "github.com/yungbote/tripseal-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/coins"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/logpayload"
)

func createInput(f *tripFixture, barcodes ...string) domainagg.CreateSessionInput {
	tags := make([]domainagg.SealTagInput, 0, len(barcodes))
	for _, b := range barcodes {
		tags = append(tags, domainagg.SealTagInput{Barcode: b, Method: "scan"})
	}
	return domainagg.CreateSessionInput{
		OperatorID:  f.operator.ID,
		CompanyID:   f.company.ID,
		Source:      "Mine A",
		Destination: "Plant B",
		Details: trip.TripDetails{
			VehicleNumber: "MH12AB1234",
			DriverName:    "Ravi",
			GrossWeight:   10.5,
		},
		SealTags: tags,
		Images:   map[string]any{"driverPicture": "gs://bucket/driver.jpg"},
	}
}

func TestSessionCreateHappyPath(t *testing.T) {
	f := newTripFixture(t, 5)
	agg := f.sessions(false)

	in := createInput(f, "SEAL-001", "SEAL-002")
	in.SealTags[1].InlineImage = &domainagg.InlineImage{Data: "QUJD", ContentType: "image/jpeg"}
	res, err := agg.Create(f.ctx, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.CoinsLeft != 4 || f.coinsOf(f.operator.ID) != 4 {
		t.Fatalf("coins after create: want=4 got=%d/%d", res.CoinsLeft, f.coinsOf(f.operator.ID))
	}
	if res.Session.Status != trip.StatusInProgress {
		t.Fatalf("status: want=%s got=%s", trip.StatusInProgress, res.Session.Status)
	}
	if res.Seal == nil || res.Seal.Barcode != "SEAL-001" {
		t.Fatalf("seal barcode: want=SEAL-001 got=%+v", res.Seal)
	}
	if n := f.count(&trip.SealTag{}, "session_id = ?", res.Session.ID); n != 2 {
		t.Fatalf("seal tags: want=2 got=%d", n)
	}
	if n := f.count(&coins.CoinTransaction{}, "reason = ? AND notes = ?", coins.ReasonSessionCreation, res.Session.ID.String()); n != 1 {
		t.Fatalf("creation coin txns: want=1 got=%d", n)
	}

	logs := f.logsFor(res.Session.ID, audit.ActionCreate)
	if len(logs) != 2 {
		t.Fatalf("create logs: want=2 got=%d", len(logs))
	}
	images := logpayload.Parse(logs[0].Details)
	if got := images.SealTagImages(false)["SEAL-002"].Data; got != "QUJD" {
		t.Fatalf("inline seal image: want=QUJD got=%q", got)
	}
	details := logpayload.Parse(logs[1].Details)
	if !details.Has(logpayload.KeySealTagData) || !details.Has(logpayload.KeyTimestamps) {
		t.Fatalf("details entry missing keys: %v", details)
	}

	ledger := f.ledger(res.Session.ID)
	for _, want := range []string{"loadingDetails.vehicleNumber", "loadingDetails.grossWeight", "images.driverPicture"} {
		if ledger[want] == nil {
			t.Fatalf("ledger row %s missing; got %v", want, res.LedgerFields)
		}
	}
	if ledger["loadingDetails.tareWeight"] != nil {
		t.Fatalf("empty fields must not reach the ledger")
	}
	if len(f.hooks.Operations) != 1 || f.hooks.Operations[0].Status != "success" {
		t.Fatalf("hooks: %+v", f.hooks.Operations)
	}
}

func TestSessionCreateInsufficientCoins(t *testing.T) {
	f := newTripFixture(t, 0)
	_, err := f.sessions(false).Create(f.ctx, createInput(f, "SEAL-001"))
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("want precondition_failed got=%v", err)
	}
	if n := f.count(&trip.Session{}, "created_by_id = ?", f.operator.ID); n != 0 {
		t.Fatalf("sessions after failed create: want=0 got=%d", n)
	}
}

func TestSessionCreateValidation(t *testing.T) {
	f := newTripFixture(t, 5)
	agg := f.sessions(false)
	cases := map[string]func(*domainagg.CreateSessionInput){
		"no seals":         func(in *domainagg.CreateSessionInput) { in.SealTags = nil },
		"blank barcode":    func(in *domainagg.CreateSessionInput) { in.SealTags[0].Barcode = "  " },
		"no source":        func(in *domainagg.CreateSessionInput) { in.Source = "" },
		"bad image field":  func(in *domainagg.CreateSessionInput) { in.Images = map[string]any{"selfie": "x"} },
		"nan weight":       func(in *domainagg.CreateSessionInput) { in.Details.GrossWeight = math.NaN() },
		"infinite freight": func(in *domainagg.CreateSessionInput) { in.Details.Freight = math.Inf(1) },
	}
	for name, mutate := range cases {
		in := createInput(f, "SEAL-001")
		mutate(&in)
		if _, err := agg.Create(f.ctx, in); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("%s: want validation got=%v", name, err)
		}
	}

	dup := createInput(f, "SEAL-001")
	dup.SealTags = append(dup.SealTags, domainagg.SealTagInput{Barcode: " seal-001 "})
	if _, err := agg.Create(f.ctx, dup); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("duplicate seals: want conflict got=%v", err)
	}
	if f.coinsOf(f.operator.ID) != 5 {
		t.Fatalf("validation failures must not debit coins")
	}
}

func TestSessionCreateRollsBackOnLogFailure(t *testing.T) {
	f := newTripFixture(t, 3)
	deps := f.sessionDeps(false)
	deps.Logs = failingLogs{deps.Logs}
	_, err := NewSessionAggregate(deps).Create(f.ctx, createInput(f, "SEAL-001"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if f.coinsOf(f.operator.ID) != 3 {
		t.Fatalf("coins after rollback: want=3 got=%d", f.coinsOf(f.operator.ID))
	}
	if n := f.count(&trip.Session{}, "created_by_id = ?", f.operator.ID); n != 0 {
		t.Fatalf("sessions after rollback: want=0 got=%d", n)
	}
	if n := f.count(&coins.CoinTransaction{}, "from_user_id = ?", f.operator.ID); n != 0 {
		t.Fatalf("coin txns after rollback: want=0 got=%d", n)
	}
}

func TestSessionCreateSurvivesLedgerFailure(t *testing.T) {
	f := newTripFixture(t, 2)
	var failures int
	deps := f.sessionDeps(false)
	deps.Ledger = fieldledger.NewRecorder(failingLedger{f.set.FieldTimestamps}, repotest.Logger(t), func(error) { failures++ })

	res, err := NewSessionAggregate(deps).Create(f.ctx, createInput(f, "SEAL-001"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if failures != 1 || res.LedgerFields != nil {
		t.Fatalf("ledger failure: want one failure and no fields, got failures=%d fields=%v", failures, res.LedgerFields)
	}
	if n := f.count(&trip.Session{}, "id = ?", res.Session.ID); n != 1 {
		t.Fatalf("session must commit despite ledger failure")
	}
	// The creation log still carries per-field timestamps for provenance fallback.
	logs := f.logsFor(res.Session.ID, audit.ActionCreate)
	p := logpayload.Parse(logs[len(logs)-1].Details)
	if len(p.Object(logpayload.KeyTimestamps)) == 0 {
		t.Fatalf("creation log timestamps missing")
	}
}

func TestUpdateTripDetails(t *testing.T) {
	f := newTripFixture(t, 5)
	agg := f.sessions(false)
	created, err := agg.Create(f.ctx, createInput(f, "SEAL-001"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sid := created.Session.ID
	before := f.ledger(sid)["loadingDetails.driverName"].UpdatedAt

	res, err := agg.UpdateTripDetails(f.ctx, domainagg.UpdateTripDetailsInput{
		SessionID: sid,
		ActorID:   f.operator.ID,
		Changes: map[string]string{
			"vehicleNumber":              "MH12ZZ9999",
			"loadingDetails.grossWeight": "12",
			"driverName":                 "Ravi",
		},
		Images:    map[string]any{"driverPicture": "gs://bucket/driver.jpg", "vehicleImages": []any{"gs://bucket/v1.jpg"}},
		UpdatedAt: created.Session.CreatedAt.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("UpdateTripDetails: %v", err)
	}
	want := []string{"images.vehicleImages", "loadingDetails.grossWeight", "loadingDetails.vehicleNumber"}
	if len(res.ChangedFields) != len(want) {
		t.Fatalf("changed: want=%v got=%v", want, res.ChangedFields)
	}
	for i := range want {
		if res.ChangedFields[i] != want[i] {
			t.Fatalf("changed: want=%v got=%v", want, res.ChangedFields)
		}
	}

	s, err := f.set.Sessions.GetByID(f.dbc(), sid)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s.VehicleNumber != "MH12ZZ9999" || s.GrossWeight != 12 || s.DriverName != "Ravi" {
		t.Fatalf("columns after update: %+v", s.TripDetails)
	}
	ledger := f.ledger(sid)
	if !ledger["loadingDetails.vehicleNumber"].UpdatedAt.After(before) {
		t.Fatalf("changed field ledger must advance")
	}
	if !ledger["loadingDetails.driverName"].UpdatedAt.Equal(before) {
		t.Fatalf("unchanged field ledger must not move")
	}
	if len(f.logsFor(sid, audit.ActionUpdate)) != 1 {
		t.Fatalf("update logs: want=1")
	}

	// Resubmitting identical values writes nothing.
	res, err = agg.UpdateTripDetails(f.ctx, domainagg.UpdateTripDetailsInput{
		SessionID: sid,
		ActorID:   f.operator.ID,
		Changes:   map[string]string{"vehicleNumber": " MH12ZZ9999 "},
	})
	if err != nil || len(res.ChangedFields) != 0 {
		t.Fatalf("no-op update: changed=%v err=%v", res.ChangedFields, err)
	}
	if len(f.logsFor(sid, audit.ActionUpdate)) != 1 {
		t.Fatalf("no-op update must not log")
	}

	_, err = agg.UpdateTripDetails(f.ctx, domainagg.UpdateTripDetailsInput{
		SessionID: sid, ActorID: f.operator.ID, Changes: map[string]string{"grossWeight": "heavy"},
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("bad number: want validation got=%v", err)
	}
	for _, raw := range []string{"NaN", "Inf", "-Infinity"} {
		_, err = agg.UpdateTripDetails(f.ctx, domainagg.UpdateTripDetailsInput{
			SessionID: sid, ActorID: f.operator.ID, Changes: map[string]string{"loadingDetails.grossWeight": raw},
		})
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("grossWeight %q: want validation got=%v", raw, err)
		}
	}
	if s, _ := f.set.Sessions.GetByID(f.dbc(), sid); s.GrossWeight != 12 {
		t.Fatalf("rejected update must leave grossWeight: want=12 got=%v", s.GrossWeight)
	}
	_, err = agg.UpdateTripDetails(f.ctx, domainagg.UpdateTripDetailsInput{
		SessionID: uuid.New(), ActorID: f.operator.ID, Changes: map[string]string{"doNumber": "1"},
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown session: want not_found got=%v", err)
	}
}

func TestEnsureSealRepairsMissingSeal(t *testing.T) {
	f := newTripFixture(t, 0)
	agg := f.sessions(false)
	s := repotest.SeedSession(t, f.ctx, f.db, f.company.ID, f.operator.ID, trip.StatusInProgress)
	repotest.SeedSealTag(t, f.ctx, f.db, s.ID, "B-1", &f.operator.ID)

	res, err := agg.EnsureSeal(f.ctx, s.ID)
	if err != nil {
		t.Fatalf("EnsureSeal: %v", err)
	}
	if !res.Repaired || res.Seal == nil || res.Seal.Barcode != "B-1" {
		t.Fatalf("repair: want repaired seal B-1 got=%+v", res)
	}
	res, err = agg.EnsureSeal(f.ctx, s.ID)
	if err != nil || res.Repaired {
		t.Fatalf("second EnsureSeal: want no repair got=%+v err=%v", res, err)
	}
	if n := f.count(&trip.Seal{}, "session_id = ?", s.ID); n != 1 {
		t.Fatalf("seals: want=1 got=%d", n)
	}

	pending := repotest.SeedSession(t, f.ctx, f.db, f.company.ID, f.operator.ID, trip.StatusPending)
	res, err = agg.EnsureSeal(f.ctx, pending.ID)
	if err != nil || res.Seal != nil || res.Repaired {
		t.Fatalf("pending session: want untouched got=%+v err=%v", res, err)
	}
}

func TestEndToEndVerification(t *testing.T) {
	f := newTripFixture(t, 5)
	sessions := f.sessions(false)
	scans := f.scans()

	created, err := sessions.Create(f.ctx, createInput(f, "SEAL-001", "SEAL-002"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sid := created.Session.ID
	if f.coinsOf(f.operator.ID) != 4 {
		t.Fatalf("coins: want=4")
	}

	first, err := scans.IngestGuardScan(f.ctx, domainagg.GuardScanInput{SessionID: sid, GuardID: f.guard.ID, Barcode: "seal-001", Method: "scanned"})
	if err != nil || first.Outcome != domainagg.GuardScanVerifiedInPlace {
		t.Fatalf("scan seal-001: outcome=%q err=%v", first.Outcome, err)
	}
	extra, err := scans.IngestGuardScan(f.ctx, domainagg.GuardScanInput{SessionID: sid, GuardID: f.guard.ID, Barcode: "SEAL-999", Method: "manual"})
	if err != nil || extra.Outcome != domainagg.GuardScanGuardOnly {
		t.Fatalf("scan SEAL-999: outcome=%q err=%v", extra.Outcome, err)
	}

	done, err := sessions.CompleteVerification(f.ctx, domainagg.CompleteVerificationInput{
		SessionID:    sid,
		GuardID:      f.guard.ID,
		Verification: map[string]any{"notes": "gate 3"},
	})
	if err != nil {
		t.Fatalf("CompleteVerification: %v", err)
	}
	if done.Session.Status != trip.StatusCompleted || !done.Seal.Verified {
		t.Fatalf("after verify: status=%s verified=%v", done.Session.Status, done.Seal.Verified)
	}
	if len(done.Matched) != 1 || done.Matched[0] != "seal-001" {
		t.Fatalf("matched: want=[seal-001] got=%v", done.Matched)
	}
	if len(done.Mismatched) != 1 || done.Mismatched[0] != "SEAL-999" {
		t.Fatalf("mismatched: want=[SEAL-999] got=%v", done.Mismatched)
	}
	if len(done.Missing) != 1 || done.Missing[0] != "SEAL-002" {
		t.Fatalf("missing: want=[SEAL-002] got=%v", done.Missing)
	}
	if done.Seal.VerifiedByID == nil || *done.Seal.VerifiedByID != f.guard.ID {
		t.Fatalf("seal verifier: want=%s got=%v", f.guard.ID, done.Seal.VerifiedByID)
	}
	if len(f.logsFor(sid, audit.ActionVerify)) != 1 {
		t.Fatalf("verify logs: want=1")
	}

	if _, err := sessions.CompleteVerification(f.ctx, domainagg.CompleteVerificationInput{SessionID: sid, GuardID: f.guard.ID}); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("second verify: want conflict got=%v", err)
	}
	_, err = sessions.UpdateTripDetails(f.ctx, domainagg.UpdateTripDetailsInput{SessionID: sid, ActorID: f.operator.ID, Changes: map[string]string{"doNumber": "7"}})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("edit after completion: want conflict got=%v", err)
	}
	if _, err := scans.IngestGuardScan(f.ctx, domainagg.GuardScanInput{SessionID: sid, GuardID: f.guard.ID, Barcode: "SEAL-002"}); !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("scan after completion: want conflict got=%v", err)
	}
	s, _ := f.set.Sessions.GetByID(f.dbc(), sid)
	if s.Status != trip.StatusCompleted {
		t.Fatalf("status regressed: %s", s.Status)
	}
}

func TestCompleteVerificationStrictGating(t *testing.T) {
	f := newTripFixture(t, 5)
	sessions := f.sessions(true)
	created, err := sessions.Create(f.ctx, createInput(f, "SEAL-001", "SEAL-002"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sid := created.Session.ID
	if _, err := f.scans().IngestGuardScan(f.ctx, domainagg.GuardScanInput{SessionID: sid, GuardID: f.guard.ID, Barcode: "SEAL-001"}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	_, err = sessions.CompleteVerification(f.ctx, domainagg.CompleteVerificationInput{SessionID: sid, GuardID: f.guard.ID})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("strict gating: want precondition_failed got=%v", err)
	}
	s, _ := f.set.Sessions.GetByID(f.dbc(), sid)
	if s.Status != trip.StatusInProgress {
		t.Fatalf("status after refused verify: want=%s got=%s", trip.StatusInProgress, s.Status)
	}

	if _, err := f.scans().IngestGuardScan(f.ctx, domainagg.GuardScanInput{SessionID: sid, GuardID: f.guard.ID, Barcode: "SEAL-002"}); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := sessions.CompleteVerification(f.ctx, domainagg.CompleteVerificationInput{SessionID: sid, GuardID: f.guard.ID}); err != nil {
		t.Fatalf("strict gating with all seals matched: %v", err)
	}
}

func TestCompleteVerificationRepairsSeal(t *testing.T) {
	f := newTripFixture(t, 0)
	s := repotest.SeedSession(t, f.ctx, f.db, f.company.ID, f.operator.ID, trip.StatusInProgress)
	repotest.SeedSealTag(t, f.ctx, f.db, s.ID, "B-7", &f.operator.ID)

	res, err := f.sessions(false).CompleteVerification(f.ctx, domainagg.CompleteVerificationInput{SessionID: s.ID, GuardID: f.guard.ID})
	if err != nil {
		t.Fatalf("CompleteVerification: %v", err)
	}
	if !res.SealRepaired || res.Seal == nil || res.Seal.Barcode != "B-7" || !res.Seal.Verified {
		t.Fatalf("repaired seal: %+v", res)
	}
}
