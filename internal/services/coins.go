package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/tripseal-backend/internal/data/repos"
	types "github.com/yungbote/tripseal-backend/internal/domain"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/domain/audit"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/access"
	"github.com/yungbote/tripseal-backend/internal/platform/apierr"
	"github.com/yungbote/tripseal-backend/internal/platform/dbctx"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
)

type AllocateCoinsRequest struct {
	ToUserID uuid.UUID `json:"to_user_id"`
	Amount   int64     `json:"amount"`
	Notes    string    `json:"notes,omitempty"`
}

type AllocateCoinsResponse struct {
	Transaction *types.CoinTransaction `json:"transaction"`
	FromBalance int64                  `json:"from_balance"`
	ToBalance   int64                  `json:"to_balance"`
}

type CoinBalance struct {
	UserID uuid.UUID `json:"user_id"`
	Coins  int64     `json:"coins"`
}

type CoinService interface {
	Allocate(dbc dbctx.Context, req AllocateCoinsRequest) (*AllocateCoinsResponse, error)
	Balance(dbc dbctx.Context) (*CoinBalance, error)
	Transactions(dbc dbctx.Context, limit, offset int) ([]*types.CoinTransaction, error)
}

type coinService struct {
	log      *logger.Logger
	repos    repos.Set
	access   AccessService
	coins    domainagg.CoinAggregate
	notifier TripNotifier
}

func NewCoinService(baseLog *logger.Logger, set repos.Set, accessSvc AccessService, coins domainagg.CoinAggregate, notifier TripNotifier) CoinService {
	return &coinService{
		log:      baseLog.With("service", "CoinService"),
		repos:    set,
		access:   accessSvc,
		coins:    coins,
		notifier: notifier,
	}
}

func (s *coinService) Allocate(dbc dbctx.Context, req AllocateCoinsRequest) (*AllocateCoinsResponse, error) {
	actor, _, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	if req.ToUserID == uuid.Nil {
		return nil, apierr.Validation("to_user_id is required")
	}
	if req.Amount <= 0 {
		return nil, apierr.Validation("amount must be positive")
	}
	target, err := s.repos.Users.GetByID(dbc, req.ToUserID)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("load recipient: %w", err))
	}
	if target == nil {
		return nil, apierr.NotFound("recipient not found")
	}
	facts, err := s.access.UserFacts(dbc, target)
	if err != nil {
		return nil, err
	}
	if d := access.Manages(actor, facts); !d.Allowed {
		s.log.Debug("Coin allocation denied", "actor_id", actor.UserID, "to_user_id", target.ID, "rule", d.Rule)
		return nil, apierr.Forbidden(d.Reason)
	}

	res, err := s.coins.Allocate(dbc.Ctx, domainagg.AllocateCoinsInput{
		FromUserID: actor.UserID,
		ToUserID:   target.ID,
		Amount:     req.Amount,
		Notes:      req.Notes,
	})
	if err != nil {
		return nil, apierr.FromAggregate(err)
	}
	s.log.Info("Coins allocated", "from_user_id", actor.UserID, "to_user_id", target.ID, "amount", req.Amount)
	s.audit(dbc, actor.UserID, res)

	out := &AllocateCoinsResponse{Transaction: res.Transaction, FromBalance: res.FromBalance, ToBalance: res.ToBalance}
	s.notifier.UserEvent(dbc.Ctx, target.ID, realtime.SSEEventCoinsAllocated, map[string]any{
		"transaction_id": res.Transaction.ID,
		"amount":         req.Amount,
		"balance":        res.ToBalance,
	})
	return out, nil
}

// audit records the allocation after commit. The ledger row is the source of
// truth, so a failed log write is only reported.
func (s *coinService) audit(dbc dbctx.Context, actorID uuid.UUID, res domainagg.AllocateCoinsResult) {
	payload, err := json.Marshal(map[string]any{
		"transactionId": res.Transaction.ID,
		"toUserId":      res.Transaction.ToUserID,
		"amount":        res.Transaction.Amount,
		"notes":         res.Transaction.Notes,
	})
	if err != nil {
		return
	}
	toID := res.Transaction.ToUserID
	entry := &types.ActivityLog{
		ID:                 uuid.New(),
		UserID:             actorID,
		Action:             audit.ActionAllocateCoins,
		TargetResourceID:   &toID,
		TargetResourceType: audit.ResourceCoins,
		Details:            datatypes.JSON(payload),
		CreatedAt:          res.Transaction.CreatedAt,
	}
	if _, err := s.repos.ActivityLogs.Create(dbctx.Context{Ctx: dbc.Ctx}, []*types.ActivityLog{entry}); err != nil {
		s.log.Warn("Coin allocation activity log failed", "transaction_id", res.Transaction.ID, "error", err)
	}
}

func (s *coinService) Balance(dbc dbctx.Context) (*CoinBalance, error) {
	_, u, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	return &CoinBalance{UserID: u.ID, Coins: u.Coins}, nil
}

func (s *coinService) Transactions(dbc dbctx.Context, limit, offset int) ([]*types.CoinTransaction, error) {
	_, u, err := s.access.Actor(dbc)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.repos.CoinTxns.ListForUser(dbc, u.ID, limit, offset)
	if err != nil {
		return nil, apierr.Internal(fmt.Errorf("list coin transactions: %w", err))
	}
	return rows, nil
}
