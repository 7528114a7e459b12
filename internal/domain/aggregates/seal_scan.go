package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

var SealScanAggregateContract = Contract{
	Name:      "Trip.SealScanAggregate",
	Isolation: IsolationReadCommitted,
	Writes:    []string{"seal_tag", "guard_seal_tag", "activity_log"},
	Notes:     "Owns guard scan ingestion: seal tag in-place verification or guard-only creation, guard scan row, audit entry.",
}

// SealScanAggregate owns the guard-verify-once invariant.
type SealScanAggregate interface {
	Aggregate

	// IngestGuardScan records a guard's scan of one barcode. A barcode that already
	// carries a guard verifier fails with CodeConflict and is left untouched.
	IngestGuardScan(ctx context.Context, in GuardScanInput) (GuardScanResult, error)
}

const (
	GuardScanVerifiedInPlace = "verified_in_place"
	GuardScanGuardOnly       = "guard_only"
)

type GuardScanInput struct {
	SessionID   uuid.UUID
	GuardID     uuid.UUID
	Barcode     string
	Method      string
	ImageRef    string
	InlineImage *InlineImage
	ScannedAt   time.Time
}

type GuardScanResult struct {
	Outcome  string
	SealTag  *trip.SealTag
	GuardTag *trip.GuardSealTag
}
