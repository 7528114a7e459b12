package fieldledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

// Recorder writes ledger rows inside an enclosing transaction. A failed write
// rolls back to a savepoint and is logged; the enclosing write still commits.
type Recorder struct {
	repo      repos.FieldTimestampRepo
	log       *logger.Logger
	onFailure func(err error)
}

func NewRecorder(repo repos.FieldTimestampRepo, baseLog *logger.Logger, onFailure func(err error)) *Recorder {
	return &Recorder{
		repo:      repo,
		log:       baseLog.With("component", "FieldLedgerRecorder"),
		onFailure: onFailure,
	}
}

// Record upserts one row per field and returns the canonical names written.
// It returns nil when the batch failed.
func (r *Recorder) Record(dbc dbctx.Context, sessionID, actorID uuid.UUID, fields []string, at time.Time) []string {
	if r == nil || len(fields) == 0 {
		return nil
	}
	seen := map[string]bool{}
	rows := make([]*trip.FieldTimestamp, 0, len(fields))
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		name := trip.CanonicalFieldName(f)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
		rows = append(rows, &trip.FieldTimestamp{
			SessionID:   sessionID,
			FieldName:   name,
			UpdatedAt:   at.UTC(),
			UpdatedByID: actorID,
		})
	}

	var err error
	if dbc.Tx != nil {
		err = dbc.Tx.Transaction(func(sp *gorm.DB) error {
			return r.repo.Upsert(dbc.WithTx(sp), rows)
		})
	} else {
		err = r.repo.Upsert(dbc, rows)
	}
	if err != nil {
		r.log.Warn("Field ledger write failed; continuing without provenance",
			"session_id", sessionID.String(),
			"fields", len(rows),
			"error", err,
		)
		if r.onFailure != nil {
			r.onFailure(err)
		}
		return nil
	}
	return names
}
