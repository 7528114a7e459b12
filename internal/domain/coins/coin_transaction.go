package coins

import (
	"time"

	"github.com/google/uuid"
)

type Reason string

const (
	ReasonSessionCreation Reason = "SESSION_CREATION"
	ReasonCoinAllocation  Reason = "COIN_ALLOCATION"
)

// CoinTransaction is one ledger movement. For session creation the coin is
// burned, so ToUserID equals FromUserID and the session id is carried in Notes.
type CoinTransaction struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FromUserID uuid.UUID `gorm:"type:uuid;not null;index;column:from_user_id" json:"from_user_id"`
	ToUserID   uuid.UUID `gorm:"type:uuid;not null;index;column:to_user_id" json:"to_user_id"`
	Amount     int64     `gorm:"not null;column:amount" json:"amount"`
	Reason     Reason    `gorm:"not null;column:reason" json:"reason"`
	Notes      string    `gorm:"column:notes" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (CoinTransaction) TableName() string { return "coin_transaction" }
