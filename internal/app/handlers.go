package app

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/tripseal-backend/internal/http"
	httpH "github.com/yungbote/tripseal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tripseal-backend/internal/http/middleware"
	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
	"github.com/yungbote/tripseal-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health   *httpH.HealthHandler
	Auth     *httpH.AuthHandler
	User     *httpH.UserHandler
	Session  *httpH.SessionHandler
	Seal     *httpH.SealHandler
	Comment  *httpH.CommentHandler
	Report   *httpH.ReportHandler
	Coin     *httpH.CoinHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Auth:     httpH.NewAuthHandler(services.Auth),
		User:     httpH.NewUserHandler(services.User),
		Session:  httpH.NewSessionHandler(services.Session),
		Seal:     httpH.NewSealHandler(services.Seal),
		Comment:  httpH.NewCommentHandler(services.Comment),
		Report:   httpH.NewReportHandler(services.Report),
		Coin:     httpH.NewCoinHandler(services.Coin),
		Realtime: httpH.NewRealtimeHandler(log, sseHub, services.Access),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *gin.Engine {
	var traced string
	if cfg.Tracing.Enabled {
		traced = cfg.Tracing.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     traced,
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxBodyBytes:    cfg.MaxPayloadBytes,
		HealthHandler:   handlers.Health,
		AuthHandler:     handlers.Auth,
		AuthMiddleware:  middleware.Auth,
		UserHandler:     handlers.User,
		SessionHandler:  handlers.Session,
		SealHandler:     handlers.Seal,
		CommentHandler:  handlers.Comment,
		ReportHandler:   handlers.Report,
		CoinHandler:     handlers.Coin,
		RealtimeHandler: handlers.Realtime,
	})
}
