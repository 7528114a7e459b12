package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Action kinds written to the activity log.
const (
	ActionCreate        = "CREATE"
	ActionUpdate        = "UPDATE"
	ActionGuardScan     = "GUARD_SCAN"
	ActionVerify        = "VERIFY"
	ActionComment       = "COMMENT"
	ActionAllocateCoins = "ALLOCATE_COINS"
	ActionLogin         = "LOGIN"
)

const (
	ResourceSession = "SESSION"
	ResourceSeal    = "SEAL"
	ResourceUser    = "USER"
	ResourceCoins   = "COINS"
)

// ActivityLog is append-only. Rows are never updated or deleted.
type ActivityLog struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Action             string         `gorm:"not null;index;column:action" json:"action"`
	TargetResourceID   *uuid.UUID     `gorm:"type:uuid;index:idx_activity_log_target,priority:2;column:target_resource_id" json:"target_resource_id,omitempty"`
	TargetResourceType string         `gorm:"index:idx_activity_log_target,priority:1;column:target_resource_type" json:"target_resource_type,omitempty"`
	Details            datatypes.JSON `gorm:"column:details" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }
