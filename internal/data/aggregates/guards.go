package aggregates

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard provides optimistic/concurrency guard helpers for aggregate writes.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx), nil
	}
	if g.db != nil {
		return g.db.WithContext(dbc.Ctx), nil
	}
	return nil, ValidationError("missing db transaction context")
}

// UpdateByVersion updates a row only when id+version match and bumps the version.
func (g CASGuard) UpdateByVersion(dbc dbctx.Context, table string, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for UpdateByVersion")
	}
	if expectedVersion < 0 {
		return false, ValidationError("expectedVersion must be >= 0")
	}
	set := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		set[k] = v
	}
	set["version"] = expectedVersion + 1
	if _, ok := set["updated_at"]; !ok {
		set["updated_at"] = time.Now().UTC()
	}
	res := db.Table(table).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AdvanceSessionStatus moves a session to next only when its current status is
// one of from. Extra columns are written in the same statement.
func (g CASGuard) AdvanceSessionStatus(dbc dbctx.Context, sessionID uuid.UUID, from []trip.Status, next trip.Status, extra map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	if sessionID == uuid.Nil {
		return false, ValidationError("session id is required for AdvanceSessionStatus")
	}
	if len(from) == 0 {
		return false, ValidationError("from statuses must not be empty")
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		if next.Rank() <= s.Rank() {
			return false, InvariantError("session status may only move forward")
		}
		allowed = append(allowed, string(s))
	}
	set := map[string]any{"status": string(next), "updated_at": time.Now().UTC()}
	for k, v := range extra {
		set[k] = v
	}
	res := db.Table(trip.Session{}.TableName()).
		Where("id = ? AND status IN ? AND deleted_at IS NULL", sessionID, allowed).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireCASSuccess converts a failed compare-and-set into a typed conflict error.
func RequireCASSuccess(ok bool, message string) error {
	if ok {
		return nil
	}
	return ConflictError(strings.TrimSpace(message))
}

// RequireStatusAllowed validates current status against allowed values.
func RequireStatusAllowed(current trip.Status, allowed ...trip.Status) error {
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if strings.EqualFold(strings.TrimSpace(string(current)), string(s)) {
			return nil
		}
	}
	return ConflictError("session is " + string(current))
}

// RequireVersionMatch validates version equality for optimistic locking flows.
func RequireVersionMatch(current, expected int) error {
	if expected < 0 {
		return ValidationError("expected version must be >= 0")
	}
	if current != expected {
		return ConflictError("version mismatch")
	}
	return nil
}
