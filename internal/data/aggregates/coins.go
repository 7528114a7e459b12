package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/tripseal-backend/internal/data/db"
	"github.com/yungbote/tripseal-backend/internal/data/repos"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/coins"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
)

const (
	defaultAllocationTimeout = 10 * time.Second
	defaultLockTimeout       = 5 * time.Second
)

type CoinAggregateDeps struct {
	Base BaseDeps

	Users repos.UserRepo
	Txns  repos.CoinTransactionRepo

	// Timeout bounds the whole allocation; LockTimeout bounds each row lock wait (Postgres only).
	Timeout     time.Duration
	LockTimeout time.Duration
}

type coinAggregate struct {
	deps CoinAggregateDeps
}

func NewCoinAggregate(deps CoinAggregateDeps) domainagg.CoinAggregate {
	if deps.Base.Runner == nil {
		deps.Base.Runner = NewSerializableTxRunner(deps.Base.DB)
	}
	deps.Base = deps.Base.withDefaults()
	if deps.Timeout <= 0 {
		deps.Timeout = defaultAllocationTimeout
	}
	if deps.LockTimeout <= 0 {
		deps.LockTimeout = defaultLockTimeout
	}
	return &coinAggregate{deps: deps}
}

func (a *coinAggregate) Contract() domainagg.Contract {
	return domainagg.CoinAggregateContract
}

func (a *coinAggregate) Allocate(ctx context.Context, in domainagg.AllocateCoinsInput) (domainagg.AllocateCoinsResult, error) {
	const op = "Coins.Allocate"
	var out domainagg.AllocateCoinsResult

	if in.FromUserID == uuid.Nil || in.ToUserID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing sender or recipient", nil)
	}
	if in.FromUserID == in.ToUserID {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "cannot allocate coins to yourself", nil)
	}
	if in.Amount <= 0 {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "amount must be positive", nil)
	}
	if a.deps.Users == nil || a.deps.Txns == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "coin aggregate repos not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, a.deps.Timeout)
	defer cancel()

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if db.IsPostgres(dbc.Tx) {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", a.deps.LockTimeout.Milliseconds())
			if err := dbc.Tx.WithContext(dbc.Ctx).Exec(stmt).Error; err != nil {
				return err
			}
		}

		// Lock both rows in id order so opposing transfers cannot deadlock.
		first, second := in.FromUserID, in.ToUserID
		if strings.Compare(first.String(), second.String()) > 0 {
			first, second = second, first
		}
		for _, id := range []uuid.UUID{first, second} {
			u, err := a.deps.Users.LockByID(dbc, id)
			if err != nil {
				return err
			}
			if u == nil {
				return NotFoundError("user not found: " + id.String())
			}
		}

		ok, err := a.deps.Users.DebitCoins(dbc, in.FromUserID, in.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return PreconditionError("insufficient coins")
		}
		if err := a.deps.Users.CreditCoins(dbc, in.ToUserID, in.Amount); err != nil {
			return err
		}

		txn := &coins.CoinTransaction{
			ID:         uuid.New(),
			FromUserID: in.FromUserID,
			ToUserID:   in.ToUserID,
			Amount:     in.Amount,
			Reason:     coins.ReasonCoinAllocation,
			Notes:      strings.TrimSpace(in.Notes),
			CreatedAt:  time.Now().UTC(),
		}
		if _, err := a.deps.Txns.Create(dbc, []*coins.CoinTransaction{txn}); err != nil {
			return err
		}

		from, err := a.deps.Users.GetByID(dbc, in.FromUserID)
		if err != nil {
			return err
		}
		to, err := a.deps.Users.GetByID(dbc, in.ToUserID)
		if err != nil {
			return err
		}
		out.Transaction = txn
		if from != nil {
			out.FromBalance = from.Coins
		}
		if to != nil {
			out.ToBalance = to.Coins
		}
		return nil
	})
	if err != nil {
		return domainagg.AllocateCoinsResult{}, err
	}
	return out, nil
}
