package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/tripseal-backend/internal/http/handlers"
	httpMW "github.com/yungbote/tripseal-backend/internal/http/middleware"
	"github.com/yungbote/tripseal-backend/internal/observability"
	"github.com/yungbote/tripseal-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string
	MaxBodyBytes   int64

	AuthHandler     *httpH.AuthHandler
	AuthMiddleware  *httpMW.AuthMiddleware
	UserHandler     *httpH.UserHandler
	SessionHandler  *httpH.SessionHandler
	SealHandler     *httpH.SealHandler
	CommentHandler  *httpH.CommentHandler
	ReportHandler   *httpH.ReportHandler
	CoinHandler     *httpH.CoinHandler
	RealtimeHandler *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.BodyLimit(cfg.MaxBodyBytes))
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/events", cfg.RealtimeHandler.SSEStream)
		}

		// Users
		if cfg.UserHandler != nil {
			protected.GET("/me", cfg.UserHandler.GetMe)
			protected.POST("/users", cfg.UserHandler.CreateUser)
			protected.PUT("/users/:id/permissions", cfg.UserHandler.SetPermissions)
		}

		// Sessions
		if cfg.SessionHandler != nil {
			protected.POST("/sessions", cfg.SessionHandler.CreateSession)
			protected.GET("/sessions", cfg.SessionHandler.ListSessions)
			protected.GET("/sessions/:id", cfg.SessionHandler.GetSession)
			protected.PATCH("/sessions/:id/trip-details", cfg.SessionHandler.UpdateTripDetails)
			protected.GET("/sessions/:id/field-timestamps", cfg.SessionHandler.FieldTimestamps)
		}

		// Seals
		if cfg.SealHandler != nil {
			protected.POST("/sessions/:id/guard-scans", cfg.SealHandler.GuardScan)
			protected.GET("/sessions/:id/seal-comparison", cfg.SealHandler.Comparison)
			protected.POST("/sessions/:id/verify", cfg.SealHandler.Verify)
		}

		if cfg.CommentHandler != nil {
			protected.POST("/sessions/:id/comments", cfg.CommentHandler.AddComment)
			protected.GET("/sessions/:id/comments", cfg.CommentHandler.ListComments)
		}

		if cfg.ReportHandler != nil {
			protected.GET("/sessions/:id/report", cfg.ReportHandler.GetReport)
		}

		// Coins
		if cfg.CoinHandler != nil {
			protected.POST("/coins/allocate", cfg.CoinHandler.Allocate)
			protected.GET("/coins/balance", cfg.CoinHandler.Balance)
			protected.GET("/coins/transactions", cfg.CoinHandler.Transactions)
		}
	}

	return r
}
