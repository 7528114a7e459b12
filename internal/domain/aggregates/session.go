package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

var SessionAggregateContract = Contract{
	Name:      "Trip.SessionAggregate",
	Isolation: IsolationReadCommitted,
	Writes:    []string{"session", "seal", "seal_tag", "field_timestamp", "user", "coin_transaction", "activity_log"},
	Notes: "Owns session creation (session, seal, seal tags, field ledger, coin debit, activity logs), " +
		"trip detail edits, seal repair and verification completion.",
}

// SessionAggregate owns the session lifecycle invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation, CodePreconditionFailed,
// CodeRetryable, CodeInternal.
type SessionAggregate interface {
	Aggregate

	// Create atomically persists an IN_PROGRESS session with its seal, seal tags, provenance rows,
	// one-coin debit and creation activity logs.
	Create(ctx context.Context, in CreateSessionInput) (CreateSessionResult, error)

	// UpdateTripDetails applies changed trip fields, their provenance rows and an audit entry atomically.
	UpdateTripDetails(ctx context.Context, in UpdateTripDetailsInput) (UpdateTripDetailsResult, error)

	// EnsureSeal creates the fallback seal for an active session that has none.
	EnsureSeal(ctx context.Context, sessionID uuid.UUID) (EnsureSealResult, error)

	// CompleteVerification marks the seal verified and moves the session to COMPLETED.
	CompleteVerification(ctx context.Context, in CompleteVerificationInput) (CompleteVerificationResult, error)
}

type SealTagInput struct {
	Barcode  string
	Method   string
	ImageRef string
	// InlineImage is set when the image is stored inline rather than by reference.
	InlineImage *InlineImage
}

type InlineImage struct {
	Data        string
	ContentType string
}

type CreateSessionInput struct {
	SessionID   uuid.UUID
	OperatorID  uuid.UUID
	CompanyID   uuid.UUID
	Source      string
	Destination string
	Details     trip.TripDetails
	SealTags    []SealTagInput
	// Images maps images.* field names to a reference or a list of references.
	Images    map[string]any
	QRCodes   map[string]any
	CreatedAt time.Time
}

type CreateSessionResult struct {
	Session       *trip.Session
	Seal          *trip.Seal
	SealTags      []*trip.SealTag
	TransactionID uuid.UUID
	CoinsLeft     int64
	LedgerFields  []string
}

type UpdateTripDetailsInput struct {
	SessionID uuid.UUID
	ActorID   uuid.UUID
	// Changes maps canonical field names to raw submitted values.
	Changes map[string]string
	// Images maps images.* field names to new references.
	Images    map[string]any
	UpdatedAt time.Time
}

type UpdateTripDetailsResult struct {
	Session       *trip.Session
	ChangedFields []string
}

type EnsureSealResult struct {
	Seal     *trip.Seal
	Repaired bool
}

type CompleteVerificationInput struct {
	SessionID    uuid.UUID
	GuardID      uuid.UUID
	Verification map[string]any
	CompletedAt  time.Time
}

type CompleteVerificationResult struct {
	Session      *trip.Session
	Seal         *trip.Seal
	SealRepaired bool
	Matched      []string
	Mismatched   []string
	Missing      []string
}
