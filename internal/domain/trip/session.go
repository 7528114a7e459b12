package trip

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Rank orders statuses along the lifecycle. Unknown statuses rank below PENDING.
func (s Status) Rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// Session is a single trip/shipment from source to destination.
type Session struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Status      Status    `gorm:"not null;index;column:status" json:"status"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index;column:company_id" json:"company_id"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null;index;column:created_by_id" json:"created_by_id"`
	Source      string    `gorm:"column:source" json:"source"`
	Destination string    `gorm:"column:destination" json:"destination"`

	TripDetails `gorm:"embedded"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "session" }

// Seal is the primary tamper-evidence record, exactly one per active session.
type Seal struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex;column:session_id" json:"session_id"`
	Barcode          string         `gorm:"column:barcode" json:"barcode"`
	Verified         bool           `gorm:"not null;default:false;column:verified" json:"verified"`
	ScannedAt        *time.Time     `gorm:"column:scanned_at" json:"scanned_at,omitempty"`
	VerifiedByID     *uuid.UUID     `gorm:"type:uuid;index;column:verified_by_id" json:"verified_by_id,omitempty"`
	VerificationData datatypes.JSON `gorm:"column:verification_data" json:"verification_data,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Seal) TableName() string { return "seal" }
