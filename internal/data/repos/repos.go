package repos

import (
	"github.com/yungbote/tripseal-backend/internal/data/repos/audit"
	"github.com/yungbote/tripseal-backend/internal/data/repos/coins"
	"github.com/yungbote/tripseal-backend/internal/data/repos/identity"
	"github.com/yungbote/tripseal-backend/internal/data/repos/trip"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = identity.UserRepo
type CompanyRepo = identity.CompanyRepo
type OperatorPermissionsRepo = identity.OperatorPermissionsRepo

type SessionRepo = trip.SessionRepo
type SessionScope = trip.SessionScope
type SessionListOptions = trip.SessionListOptions
type SealRepo = trip.SealRepo
type SealTagRepo = trip.SealTagRepo
type GuardSealTagRepo = trip.GuardSealTagRepo
type FieldTimestampRepo = trip.FieldTimestampRepo
type CommentRepo = trip.CommentRepo

type ActivityLogRepo = audit.ActivityLogRepo

type CoinTransactionRepo = coins.CoinTransactionRepo

// Set bundles every table repo behind one value for wiring.
type Set struct {
	Users           UserRepo
	Companies       CompanyRepo
	OperatorPerms   OperatorPermissionsRepo
	Sessions        SessionRepo
	Seals           SealRepo
	SealTags        SealTagRepo
	GuardSealTags   GuardSealTagRepo
	FieldTimestamps FieldTimestampRepo
	Comments        CommentRepo
	ActivityLogs    ActivityLogRepo
	CoinTxns        CoinTransactionRepo
}

func NewSet(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Users:           identity.NewUserRepo(db, log),
		Companies:       identity.NewCompanyRepo(db, log),
		OperatorPerms:   identity.NewOperatorPermissionsRepo(db, log),
		Sessions:        trip.NewSessionRepo(db, log),
		Seals:           trip.NewSealRepo(db, log),
		SealTags:        trip.NewSealTagRepo(db, log),
		GuardSealTags:   trip.NewGuardSealTagRepo(db, log),
		FieldTimestamps: trip.NewFieldTimestampRepo(db, log),
		Comments:        trip.NewCommentRepo(db, log),
		ActivityLogs:    audit.NewActivityLogRepo(db, log),
		CoinTxns:        coins.NewCoinTransactionRepo(db, log),
	}
}
