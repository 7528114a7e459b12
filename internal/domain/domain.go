package domain

import (
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/domain/coins"
	"github.com/yungbote/tripseal-backend/internal/domain/identity"
	"github.com/yungbote/tripseal-backend/internal/domain/trip"
)

type Role = identity.Role
type SubRole = identity.SubRole

const (
	RoleSuperAdmin = identity.RoleSuperAdmin
	RoleAdmin      = identity.RoleAdmin
	RoleCompany    = identity.RoleCompany
	RoleEmployee   = identity.RoleEmployee

	SubRoleOperator    = identity.SubRoleOperator
	SubRoleGuard       = identity.SubRoleGuard
	SubRoleDriver      = identity.SubRoleDriver
	SubRoleTransporter = identity.SubRoleTransporter
)

type User = identity.User
type Company = identity.Company
type OperatorPermissions = identity.OperatorPermissions

type SessionStatus = trip.Status

const (
	SessionPending    = trip.StatusPending
	SessionInProgress = trip.StatusInProgress
	SessionCompleted  = trip.StatusCompleted
)

type Session = trip.Session
type TripDetails = trip.TripDetails
type Seal = trip.Seal
type SealTag = trip.SealTag
type GuardSealTag = trip.GuardSealTag
type FieldTimestamp = trip.FieldTimestamp
type Comment = trip.Comment

type ActivityLog = audit.ActivityLog

type CoinTransaction = coins.CoinTransaction
type CoinReason = coins.Reason

const (
	CoinReasonSessionCreation = coins.ReasonSessionCreation
	CoinReasonCoinAllocation  = coins.ReasonCoinAllocation
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&User{},
		&Company{},
		&OperatorPermissions{},
		&Session{},
		&Seal{},
		&SealTag{},
		&GuardSealTag{},
		&FieldTimestamp{},
		&Comment{},
		&ActivityLog{},
		&CoinTransaction{},
	}
}

func NormalizeBarcode(s string) string { return trip.NormalizeBarcode(s) }
