package identity

import (
	"time"

	"github.com/google/uuid"
)

type OperatorPermissions struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
	CanCreate bool      `gorm:"not null;default:false;column:can_create" json:"can_create"`
	CanModify bool      `gorm:"not null;default:false;column:can_modify" json:"can_modify"`
	CanDelete bool      `gorm:"not null;default:false;column:can_delete" json:"can_delete"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (OperatorPermissions) TableName() string { return "operator_permissions" }
