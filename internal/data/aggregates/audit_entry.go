package aggregates

import (
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/logpayload"
	"gorm.io/datatypes"
)

func newActivityLog(actorID uuid.UUID, action, resourceType string, targetID uuid.UUID, payload logpayload.Payload, at time.Time) (*audit.ActivityLog, error) {
	raw, err := payload.Encode()
	if err != nil {
		return nil, ValidationError("activity payload is not encodable: " + err.Error())
	}
	target := targetID
	return &audit.ActivityLog{
		ID:                 uuid.New(),
		UserID:             actorID,
		Action:             action,
		TargetResourceID:   &target,
		TargetResourceType: resourceType,
		Details:            datatypes.JSON(raw),
		CreatedAt:          at.UTC(),
	}, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
