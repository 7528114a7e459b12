package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/data/aggregates"
	"github.com/yungbote/tripseal-backend/internal/data/repos"
	domainagg "github.com/yungbote/tripseal-backend/internal/domain/aggregates"
	"github.com/yungbote/tripseal-backend/internal/media"
	"github.com/yungbote/tripseal-backend/internal/modules/trip/fieldledger"
	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/services"
)

type Aggregates struct {
	Sessions domainagg.SessionAggregate
	Scans    domainagg.SealScanAggregate
	Coins    domainagg.CoinAggregate
}

type Services struct {
	Access   services.AccessService
	Auth     services.AuthService
	User     services.UserService
	Session  services.SessionService
	Seal     services.SealService
	Comment  services.CommentService
	Report   services.ReportService
	Coin     services.CoinService
	Notifier services.TripNotifier
}

func wireAggregates(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, metrics *observability.Metrics) Aggregates {
	log.Info("Wiring aggregates...")
	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics, log),
	}
	ledger := fieldledger.NewRecorder(set.FieldTimestamps, log, func(err error) {
		log.Warn("Field timestamp write failed", "error", err)
	})
	return Aggregates{
		Sessions: aggregates.NewSessionAggregate(aggregates.SessionAggregateDeps{
			Base:             base,
			Sessions:         set.Sessions,
			Seals:            set.Seals,
			SealTags:         set.SealTags,
			GuardTags:        set.GuardSealTags,
			Users:            set.Users,
			CoinTxns:         set.CoinTxns,
			Logs:             set.ActivityLogs,
			Ledger:           ledger,
			StrictSealGating: cfg.StrictSealGating,
		}),
		Scans: aggregates.NewSealScanAggregate(aggregates.SealScanAggregateDeps{
			Base:      base,
			Sessions:  set.Sessions,
			SealTags:  set.SealTags,
			GuardTags: set.GuardSealTags,
			Logs:      set.ActivityLogs,
		}),
		Coins: aggregates.NewCoinAggregate(aggregates.CoinAggregateDeps{
			Base:        base,
			Users:       set.Users,
			Txns:        set.CoinTxns,
			Timeout:     cfg.CoinTransferTimeout,
			LockTimeout: cfg.CoinLockWait,
		}),
	}
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, aggs Aggregates, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	resolver, err := fieldledger.NewResolver(cfg.PoisonedDates)
	if err != nil {
		return Services{}, fmt.Errorf("init field timestamp resolver: %w", err)
	}

	var store media.Store
	if clients.ImageBucket != nil {
		store = clients.ImageBucket
	}
	images := media.NewProcessor(log, store, media.Config{
		MaxImageBytes: cfg.MaxImageBytes,
		EncodeTimeout: cfg.ImageEncodeTimeout,
	})

	notifier := services.NewTripNotifier(log, clients.Bus, metrics)
	accessService := services.NewAccessService(log, set)

	return Services{
		Access:   accessService,
		Auth:     services.NewAuthService(log, set.Users, set.ActivityLogs, cfg.JWTSecretKey, cfg.AccessTokenTTL),
		User:     services.NewUserService(db, log, set, accessService),
		Session:  services.NewSessionService(log, set, accessService, aggs.Sessions, images, resolver, notifier),
		Seal:     services.NewSealService(log, set, accessService, aggs.Scans, aggs.Sessions, images, resolver, notifier),
		Comment:  services.NewCommentService(db, log, set, accessService, notifier),
		Report:   services.NewReportService(log, set, accessService, aggs.Sessions, resolver),
		Coin:     services.NewCoinService(log, set, accessService, aggs.Coins, notifier),
		Notifier: notifier,
	}, nil
}
