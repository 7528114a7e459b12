package sealcheck

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

func TestClassifyMatchesCaseAndSpaceVariants(t *testing.T) {
	matched, mismatched := ClassifyBarcodes([]string{"SEAL-001", "SEAL-002"}, []string{" seal-001 ", "SEAL-999"})
	if !reflect.DeepEqual(matched, []string{" seal-001 "}) {
		t.Fatalf("matched: want=[seal-001] got=%v", matched)
	}
	if !reflect.DeepEqual(mismatched, []string{"SEAL-999"}) {
		t.Fatalf("mismatched: want=[SEAL-999] got=%v", mismatched)
	}
}

func TestClassifyReportsMissingOperatorSeals(t *testing.T) {
	ops := []OperatorSeal{{Barcode: "A"}, {Barcode: "B"}}
	c := Classify(ops, []GuardScanRecord{{Barcode: "a"}})
	if len(c.Missing) != 1 || c.Missing[0].Barcode != "B" {
		t.Fatalf("Missing: unexpected %+v", c.Missing)
	}
	if c.AllMatched() {
		t.Fatalf("AllMatched: expected false with a missing seal")
	}
	if !Classify(ops, []GuardScanRecord{{Barcode: "A"}, {Barcode: "b"}}).AllMatched() {
		t.Fatalf("AllMatched: expected true")
	}
}

// For random operator and guard sets: matched = {g : normalize(g) in O},
// mismatched = G \ matched, and the two are disjoint and cover G.
func TestClassifyPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := []string{"S-1", "s-1", " S-2", "S-3 ", "s-4", "X-9", "x-9", "Y"}
	pick := func() []string {
		n := rng.Intn(len(pool))
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, pool[rng.Intn(len(pool))])
		}
		return out
	}
	for iter := 0; iter < 500; iter++ {
		ops, guards := pick(), pick()
		matched, mismatched := ClassifyBarcodes(ops, guards)

		opSet := map[string]bool{}
		for _, o := range ops {
			opSet[trip.NormalizeBarcode(o)] = true
		}
		distinct := map[string]bool{}
		for _, g := range guards {
			distinct[trip.NormalizeBarcode(g)] = true
		}

		got := map[string]string{}
		for _, m := range matched {
			k := trip.NormalizeBarcode(m)
			if !opSet[k] {
				t.Fatalf("iter %d: %q matched but not in operator set", iter, m)
			}
			got[k] = "matched"
		}
		for _, m := range mismatched {
			k := trip.NormalizeBarcode(m)
			if opSet[k] {
				t.Fatalf("iter %d: %q mismatched but in operator set", iter, m)
			}
			if got[k] != "" {
				t.Fatalf("iter %d: %q in both partitions", iter, m)
			}
			got[k] = "mismatched"
		}
		if len(got) != len(distinct) {
			t.Fatalf("iter %d: partition covers %d of %d guard barcodes", iter, len(got), len(distinct))
		}
	}
}

func TestMergeGuardRecordsPrefersGuardSealTag(t *testing.T) {
	sessionID := uuid.New()
	guardA, guardB := uuid.New(), uuid.New()
	at := time.Now().UTC()
	guardTags := []*trip.GuardSealTag{{SessionID: sessionID, Barcode: "SEAL-001", Method: trip.MethodScanned, Status: trip.GuardStatusVerified, ImageRef: "gst", VerifiedByID: guardA, CreatedAt: at}}
	sealTags := []*trip.SealTag{
		{SessionID: sessionID, Barcode: "seal-001", Method: trip.MethodScanned, GuardMethod: trip.MethodManual, GuardImageRef: "st", GuardUserID: &guardB, GuardTimestamp: &at, GuardStatus: trip.GuardStatusVerified},
		{SessionID: sessionID, Barcode: "SEAL-777", Method: trip.MethodGuardOnly, GuardMethod: trip.MethodManual, GuardUserID: &guardB, GuardTimestamp: &at, GuardStatus: trip.GuardStatusGuardOnly},
		{SessionID: sessionID, Barcode: "SEAL-002", Method: trip.MethodScanned},
	}
	got := MergeGuardRecords(guardTags, sealTags)
	if len(got) != 2 {
		t.Fatalf("MergeGuardRecords: want=2 got=%d", len(got))
	}
	if got[0].Source != SourceGuardSealTag || got[0].ImageRef != "gst" {
		t.Fatalf("SEAL-001: guard seal tag must win, got %+v", got[0])
	}
	if got[1].Barcode != "SEAL-777" || got[1].Source != SourceSealTag {
		t.Fatalf("SEAL-777: unexpected %+v", got[1])
	}

	ops := OperatorSeals(sealTags)
	if !reflect.DeepEqual(OperatorBarcodes(ops), []string{"seal-001", "SEAL-002"}) {
		t.Fatalf("OperatorSeals: guard-only rows must be skipped, got %v", OperatorBarcodes(ops))
	}
}

func TestGuardRecordsUsesLegacyOnlyWithoutStructuredData(t *testing.T) {
	legacy := []byte(`{"guardImages":{"sealTag_SEAL-001":"https://img/1"}}`)
	recs, isLegacy := GuardRecords(nil, nil, legacy)
	if !isLegacy || len(recs) != 1 || recs[0].Barcode != "SEAL-001" {
		t.Fatalf("legacy: unexpected %v %+v", isLegacy, recs)
	}

	g := uuid.New()
	recs, isLegacy = GuardRecords([]*trip.GuardSealTag{{Barcode: "SEAL-002", VerifiedByID: g}}, nil, legacy)
	if isLegacy || len(recs) != 1 || recs[0].Barcode != "SEAL-002" {
		t.Fatalf("structured: unexpected %v %+v", isLegacy, recs)
	}
}

func TestExtractLegacyGuardTagsHeuristics(t *testing.T) {
	raw := []byte(`{"guardImages":{
		"sealTag_SEAL-001":"https://img/1",
		"sealTags":["https://img/a",{"id":"SEAL-010","method":"qr","imageUrl":"https://img/b","verified":false}],
		"barcode:SEAL-020":{"barcode":"SEAL-020","image":"https://img/c"},
		"driverPicture":"https://img/driver",
		"tagEmpty":""
	}}`)
	recs, ok := ExtractLegacyGuardTags(raw)
	if !ok {
		t.Fatalf("ExtractLegacyGuardTags: expected records")
	}
	byBarcode := map[string]GuardScanRecord{}
	var names []string
	for _, r := range recs {
		if r.Source != SourceLegacy {
			t.Fatalf("record %s: want legacy source got %s", r.Barcode, r.Source)
		}
		byBarcode[r.Barcode] = r
		names = append(names, r.Barcode)
	}
	sort.Strings(names)
	want := []string{"SEAL-001", "SEAL-020", "sealTags-1"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("barcodes: want=%v got=%v", want, names)
	}
	if r := byBarcode["SEAL-020"]; !r.Verified || r.ImageRef != "https://img/c" {
		t.Fatalf("SEAL-020: unexpected %+v", r)
	}
}

func TestLegacyUnverifiedObjectsAreNotGuardScans(t *testing.T) {
	raw := []byte(`{"guardImages":{"sealTags":[{"id":"SEAL-010","method":"qr","imageUrl":"https://img/b","verified":false}]}}`)
	recs, ok := ExtractLegacyGuardTags(raw)
	if ok || len(recs) != 0 {
		t.Fatalf("unverified only: want=none got=%v %+v", ok, recs)
	}

	recs, isLegacy := GuardRecords(nil, nil, raw)
	if isLegacy || len(recs) != 0 {
		t.Fatalf("GuardRecords: want=none got=%v %+v", isLegacy, recs)
	}
	c := Classify([]OperatorSeal{{Barcode: "SEAL-010"}}, recs)
	if len(c.Matched) != 0 || len(c.Missing) != 1 || c.AllMatched() {
		t.Fatalf("classify: want=missing SEAL-010 got=%+v", c)
	}

	mixed := []byte(`{"guardImages":{"sealTags":[{"id":"SEAL-010","verified":false},{"id":"SEAL-010","verified":true}]}}`)
	recs, ok = ExtractLegacyGuardTags(mixed)
	if !ok || len(recs) != 1 || !recs[0].Verified {
		t.Fatalf("mixed: want=one verified SEAL-010 got=%v %+v", ok, recs)
	}
}

func TestExtractLegacyGuardTagsNeverFails(t *testing.T) {
	for _, raw := range []string{"", "garbage", `[]`, `{"guardImages":"x"}`, `{"guardImages":{"seal":42}}`, `{"other":{}}`} {
		recs, ok := ExtractLegacyGuardTags([]byte(raw))
		if ok || len(recs) != 0 {
			t.Fatalf("%q: want empty got %v %+v", raw, ok, recs)
		}
	}
}
