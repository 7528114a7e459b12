package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/logpayload"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

type SealScanAggregateDeps struct {
	Base BaseDeps

	Sessions  repos.SessionRepo
	SealTags  repos.SealTagRepo
	GuardTags repos.GuardSealTagRepo
	Logs      repos.ActivityLogRepo
}

type sealScanAggregate struct {
	deps SealScanAggregateDeps
}

func NewSealScanAggregate(deps SealScanAggregateDeps) domainagg.SealScanAggregate {
	deps.Base = deps.Base.withDefaults()
	return &sealScanAggregate{deps: deps}
}

func (a *sealScanAggregate) Contract() domainagg.Contract {
	return domainagg.SealScanAggregateContract
}

func (a *sealScanAggregate) IngestGuardScan(ctx context.Context, in domainagg.GuardScanInput) (domainagg.GuardScanResult, error) {
	const op = "Trip.SealScan.IngestGuardScan"
	var out domainagg.GuardScanResult

	barcode := strings.TrimSpace(in.Barcode)
	if in.SessionID == uuid.Nil || in.GuardID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing session or guard", nil)
	}
	if barcode == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "barcode is required", nil)
	}
	if a.deps.Sessions == nil || a.deps.SealTags == nil || a.deps.GuardTags == nil || a.deps.Logs == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "seal scan aggregate repos not configured", nil)
	}
	method := trip.NormalizeMethod(in.Method)
	if method == trip.MethodGuardOnly {
		method = trip.MethodManual
	}
	imageRef := strings.TrimSpace(in.ImageRef)
	at := nowOr(in.ScannedAt)
	guardID := in.GuardID

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		// The session row lock serializes concurrent scans of one session.
		s, err := a.deps.Sessions.LockByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if s == nil {
			return NotFoundError("session not found: " + in.SessionID.String())
		}
		if s.Status == trip.StatusCompleted {
			return ConflictError("session verification is already complete")
		}

		scanned, err := a.deps.GuardTags.ExistsByBarcode(dbc, s.ID, barcode)
		if err != nil {
			return err
		}
		if scanned {
			return ConflictError("seal " + barcode + " was already scanned by a guard")
		}

		tag, err := a.deps.SealTags.GetByBarcode(dbc, s.ID, barcode, true)
		if err != nil {
			return err
		}
		switch {
		case tag != nil && tag.GuardVerified():
			return ConflictError("seal " + barcode + " was already verified")

		case tag != nil:
			ok, err := a.deps.Base.CASGuard.UpdateByVersion(dbc, trip.SealTag{}.TableName(), tag.ID, tag.Version, map[string]any{
				"guard_method":    method,
				"guard_image_ref": imageRef,
				"guard_timestamp": at,
				"guard_user_id":   guardID,
				"guard_status":    trip.GuardStatusVerified,
				"updated_at":      at,
			})
			if err != nil {
				return err
			}
			if err := RequireCASSuccess(ok, "seal "+barcode+" changed concurrently"); err != nil {
				return err
			}
			if tag, err = a.deps.SealTags.GetByBarcode(dbc, s.ID, barcode, false); err != nil {
				return err
			}
			out.Outcome = domainagg.GuardScanVerifiedInPlace

		default:
			tag = &trip.SealTag{
				ID:             uuid.New(),
				SessionID:      s.ID,
				Barcode:        barcode,
				Method:         trip.MethodGuardOnly,
				GuardMethod:    method,
				GuardImageRef:  imageRef,
				GuardTimestamp: &at,
				GuardUserID:    &guardID,
				GuardStatus:    trip.GuardStatusGuardOnly,
				CreatedAt:      at,
				UpdatedAt:      at,
			}
			if _, err := a.deps.SealTags.Create(dbc, []*trip.SealTag{tag}); err != nil {
				if isUniqueViolation(err) {
					return ConflictError("seal " + barcode + " was registered concurrently")
				}
				return err
			}
			out.Outcome = domainagg.GuardScanGuardOnly
		}

		guardTag := &trip.GuardSealTag{
			ID:           uuid.New(),
			SessionID:    s.ID,
			Barcode:      barcode,
			Method:       method,
			Status:       tag.GuardStatus,
			ImageRef:     imageRef,
			VerifiedByID: guardID,
			CreatedAt:    at,
		}
		if _, err := a.deps.GuardTags.Create(dbc, []*trip.GuardSealTag{guardTag}); err != nil {
			if isUniqueViolation(err) {
				return ConflictError("seal " + barcode + " was already scanned by a guard")
			}
			return err
		}

		var inline *logpayload.SealTagImage
		if in.InlineImage != nil && in.InlineImage.Data != "" {
			inline = &logpayload.SealTagImage{Data: in.InlineImage.Data, ContentType: in.InlineImage.ContentType}
		}
		entry := logpayload.GuardScanEntry(s.ID.String(), barcode, method, out.Outcome, at, inline)
		if imageRef != "" {
			entry["imageRef"] = imageRef
		}
		l, err := newActivityLog(guardID, audit.ActionGuardScan, audit.ResourceSeal, s.ID, entry, at)
		if err != nil {
			return err
		}
		if _, err := a.deps.Logs.Create(dbc, []*audit.ActivityLog{l}); err != nil {
			return err
		}

		out.SealTag = tag
		out.GuardTag = guardTag
		return nil
	})
	if err != nil {
		return domainagg.GuardScanResult{}, err
	}
	return out, nil
}
