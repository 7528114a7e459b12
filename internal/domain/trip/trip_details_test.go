package trip

import (
	"math"
	"testing"
)

func TestLookupFieldAcceptsCanonicalAndBareNames(t *testing.T) {
	cases := map[string]string{
		"loadingDetails.driverName":    "loadingDetails.driverName",
		"driverName":                   "loadingDetails.driverName",
		"driverDetails.driverLicense":  "driverDetails.driverLicense",
		"images.gpsImeiPicture":        "images.gpsImeiPicture",
		"loadingDetails.sealingImages": "images.sealingImages",
	}
	for in, want := range cases {
		if got := CanonicalFieldName(in); got != want {
			t.Fatalf("CanonicalFieldName(%q): want=%q got=%q", in, want, got)
		}
	}
	if _, ok := LookupField("nope"); ok {
		t.Fatalf("LookupField: unexpected match for unknown field")
	}
}

func TestFieldSpecSetParsesNumbers(t *testing.T) {
	var d TripDetails
	f, _ := LookupField("grossWeight")
	pk, _ := LookupField("numberOfPackages")
	if err := f.Set(&d, " 1200.50 "); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := f.Get(&d); got != "1200.5" {
		t.Fatalf("Get: want=1200.5 got=%q", got)
	}
	if err := f.Set(&d, "heavy"); err == nil {
		t.Fatalf("Set: expected error for non-numeric weight")
	}
	for _, raw := range []string{"NaN", "Inf", "+Infinity", "-inf"} {
		if err := f.Set(&d, raw); err == nil {
			t.Fatalf("Set(%q): expected error for non-finite weight", raw)
		}
	}
	if got := f.Get(&d); got != "1200.5" {
		t.Fatalf("Get after rejected sets: want=1200.5 got=%q", got)
	}
	if err := pk.Set(&d, "NaN"); err == nil {
		t.Fatalf("Set: expected error for NaN package count")
	}
	if err := pk.Set(&d, "-1"); err == nil {
		t.Fatalf("Set: expected error for negative package count")
	}
	img, _ := LookupField("driverPicture")
	if err := img.Set(&d, "x"); err == nil {
		t.Fatalf("Set: expected error for image field")
	}
}

func TestSnapshotAndPayloadCoverDetailFields(t *testing.T) {
	d := TripDetails{DriverName: " Ravi ", DriverLicense: "DL-1", NumberOfPackages: 3}
	snap := d.Snapshot()
	if len(snap) != len(DetailFieldSpecs()) {
		t.Fatalf("Snapshot: want=%d keys got=%d", len(DetailFieldSpecs()), len(snap))
	}
	if snap["loadingDetails.driverName"] != "Ravi" {
		t.Fatalf("Snapshot: driverName not trimmed: %q", snap["loadingDetails.driverName"])
	}
	payload := d.Payload()
	dd, _ := payload[SectionDriverDetails].(map[string]any)
	if dd["driverLicense"] != "DL-1" {
		t.Fatalf("Payload: unexpected driverDetails %v", dd)
	}
	ld, _ := payload[SectionLoadingDetails].(map[string]any)
	if ld["numberOfPackages"] != "3" {
		t.Fatalf("Payload: unexpected numberOfPackages %v", ld["numberOfPackages"])
	}
}

func TestStatusRankIsForwardOrdered(t *testing.T) {
	if !(StatusPending.Rank() < StatusInProgress.Rank() && StatusInProgress.Rank() < StatusCompleted.Rank()) {
		t.Fatalf("status ranks are not ordered")
	}
	if Status("BOGUS").Rank() != 0 {
		t.Fatalf("unknown status must rank 0")
	}
}

func TestTripDetailsValidate(t *testing.T) {
	ok := TripDetails{GrossWeight: 12.5, NumberOfPackages: 3}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: want=nil got=%v", err)
	}
	bad := map[string]TripDetails{
		"nan":      {TareWeight: math.NaN()},
		"inf":      {Freight: math.Inf(-1)},
		"negative": {NetMaterialWeight: -1},
		"packages": {NumberOfPackages: -2},
	}
	for name, d := range bad {
		if err := d.Validate(); err == nil {
			t.Fatalf("%s: want error", name)
		}
	}
}
