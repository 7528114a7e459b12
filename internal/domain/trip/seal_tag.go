package trip

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MethodScanned   = "scanned"
	MethodManual    = "manual"
	MethodGuardOnly = "guard only"
)

const (
	GuardStatusVerified  = "VERIFIED"
	GuardStatusGuardOnly = "GUARD_ONLY"
)

// NormalizeBarcode returns the comparison key for a barcode: trimmed and case-folded.
func NormalizeBarcode(barcode string) string {
	return strings.ToLower(strings.TrimSpace(barcode))
}

func NormalizeMethod(method string) string {
	switch m := strings.ToLower(strings.TrimSpace(method)); m {
	case MethodScanned, "scan", "qr", "barcode":
		return MethodScanned
	case MethodGuardOnly:
		return MethodGuardOnly
	default:
		return MethodManual
	}
}

// SealTag is one physical seal applied by the operator. Guard fields are filled
// in place when a guard scans the same barcode; guard-only rows carry no operator data.
type SealTag struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_seal_tag_session_barcode,priority:1;column:session_id" json:"session_id"`
	Barcode     string     `gorm:"not null;column:barcode" json:"barcode"`
	BarcodeKey  string     `gorm:"not null;uniqueIndex:idx_seal_tag_session_barcode,priority:2;column:barcode_key" json:"-"`
	Method      string     `gorm:"not null;column:method" json:"method"`
	ImageRef    string     `gorm:"column:image_ref" json:"image_ref,omitempty"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;column:created_by_id" json:"created_by_id,omitempty"`

	GuardMethod    string     `gorm:"column:guard_method" json:"guard_method,omitempty"`
	GuardImageRef  string     `gorm:"column:guard_image_ref" json:"guard_image_ref,omitempty"`
	GuardTimestamp *time.Time `gorm:"column:guard_timestamp" json:"guard_timestamp,omitempty"`
	GuardUserID    *uuid.UUID `gorm:"type:uuid;column:guard_user_id" json:"guard_user_id,omitempty"`
	GuardStatus    string     `gorm:"column:guard_status" json:"guard_status,omitempty"`

	Version   int       `gorm:"not null;default:0;column:version" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (SealTag) TableName() string { return "seal_tag" }

// IsOperatorTag reports whether the operator registered this seal.
func (t *SealTag) IsOperatorTag() bool {
	return t != nil && t.Method != MethodGuardOnly
}

func (t *SealTag) GuardVerified() bool {
	return t != nil && t.GuardUserID != nil && *t.GuardUserID != uuid.Nil
}

// GuardSealTag records a guard's independent scan event.
type GuardSealTag struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_guard_seal_tag_session_barcode,priority:1;column:session_id" json:"session_id"`
	Barcode      string    `gorm:"not null;column:barcode" json:"barcode"`
	BarcodeKey   string    `gorm:"not null;uniqueIndex:idx_guard_seal_tag_session_barcode,priority:2;column:barcode_key" json:"-"`
	Method       string    `gorm:"not null;column:method" json:"method"`
	Status       string    `gorm:"not null;column:status" json:"status"`
	ImageRef     string    `gorm:"column:image_ref" json:"image_ref,omitempty"`
	VerifiedByID uuid.UUID `gorm:"type:uuid;not null;index;column:verified_by_id" json:"verified_by_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (GuardSealTag) TableName() string { return "guard_seal_tag" }
