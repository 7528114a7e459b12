package trip

import (
	"time"

	"github.com/google/uuid"
)

const (
	UrgencyNA     = "NA"
	UrgencyLow    = "LOW"
	UrgencyMedium = "MEDIUM"
	UrgencyHigh   = "HIGH"
)

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index;column:session_id" json:"session_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	Message   string    `gorm:"not null;column:message" json:"message"`
	Urgency   string    `gorm:"not null;default:'NA';column:urgency" json:"urgency"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Comment) TableName() string { return "comment" }
