package trip

import (
	"time"

	"github.com/google/uuid"
)

// FieldTimestamp is the provenance row for one named field of a session.
type FieldTimestamp struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_field_timestamp_session_field,priority:1;column:session_id" json:"session_id"`
	FieldName   string    `gorm:"not null;uniqueIndex:idx_field_timestamp_session_field,priority:2;column:field_name" json:"field_name"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime:false;column:updated_at" json:"updated_at"`
	UpdatedByID uuid.UUID `gorm:"type:uuid;not null;column:updated_by_id" json:"updated_by_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (FieldTimestamp) TableName() string { return "field_timestamp" }
