package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/domain/coins"
)

var CoinAggregateContract = Contract{
	Name:      "Coins.CoinAggregate",
	Isolation: IsolationSerializable,
	Writes:    []string{"user", "coin_transaction"},
	Notes:     "Owns balance transfers under serializable isolation; balances never go negative and every move has one ledger row.",
}

// CoinAggregate owns coin conservation.
type CoinAggregate interface {
	Aggregate

	// Allocate moves Amount coins from FromUserID to ToUserID, or nothing at all.
	Allocate(ctx context.Context, in AllocateCoinsInput) (AllocateCoinsResult, error)
}

type AllocateCoinsInput struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Amount     int64
	Notes      string
}

type AllocateCoinsResult struct {
	Transaction *coins.CoinTransaction
	FromBalance int64
	ToBalance   int64
}
