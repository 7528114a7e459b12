package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPERADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleCompany    Role = "COMPANY"
	RoleEmployee   Role = "EMPLOYEE"
)

type SubRole string

const (
	SubRoleNone        SubRole = ""
	SubRoleOperator    SubRole = "OPERATOR"
	SubRoleGuard       SubRole = "GUARD"
	SubRoleDriver      SubRole = "DRIVER"
	SubRoleTransporter SubRole = "TRANSPORTER"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleSuperAdmin, RoleAdmin, RoleCompany, RoleEmployee:
		return r, true
	default:
		return "", false
	}
}

func ParseSubRole(s string) (SubRole, bool) {
	switch r := SubRole(strings.ToUpper(strings.TrimSpace(s))); r {
	case SubRoleNone, SubRoleOperator, SubRoleGuard, SubRoleDriver, SubRoleTransporter:
		return r, true
	default:
		return "", false
	}
}

type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Email       string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password    string     `gorm:"not null;column:password" json:"-"`
	Role        Role       `gorm:"not null;index;column:role" json:"role"`
	SubRole     SubRole    `gorm:"column:sub_role" json:"subrole,omitempty"`
	CompanyID   *uuid.UUID `gorm:"type:uuid;index;column:company_id" json:"company_id,omitempty"`
	CreatedByID *uuid.UUID `gorm:"type:uuid;index;column:created_by_id" json:"created_by_id,omitempty"`
	Coins       int64      `gorm:"not null;default:0;column:coins" json:"coins"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) IsOperator() bool {
	return u != nil && u.Role == RoleEmployee && u.SubRole == SubRoleOperator
}

func (u *User) IsGuard() bool {
	return u != nil && u.Role == RoleEmployee && u.SubRole == SubRoleGuard
}
