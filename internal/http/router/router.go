package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/feedback-escalation/internal/config"
	"github.com/ignatzorin/feedback-escalation/internal/http/handlers"
	"github.com/ignatzorin/feedback-escalation/internal/http/middleware"
	"github.com/ignatzorin/feedback-escalation/internal/interface/http/handler"
	"github.com/ignatzorin/feedback-escalation/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	tokenManager *service.TokenManager,
	limiterStore limiter.Store,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
	feedbackHandler *handler.FeedbackHandler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokenManager))

	api.GET("/ws", wsHandler.Handle)

	mutating := middleware.RateLimitMiddleware(limiterStore, cfg.RateLimitLimit, cfg.RateLimitPeriod)
	validID := middleware.UUIDValidator("id")

	feedback := api.Group("/feedback")
	{
		feedback.POST("", mutating, feedbackHandler.Register)
		feedback.GET("/:id", validID, feedbackHandler.Get)
		feedback.POST("/:id/view", validID, mutating, feedbackHandler.View)
		feedback.PATCH("/:id/category", validID, mutating, feedbackHandler.ChangeCategory)
		feedback.POST("/:id/approvals", validID, mutating, feedbackHandler.Approve)
		feedback.POST("/:id/archive", validID, middleware.RequireQuorumRole(), mutating, feedbackHandler.Archive)
		feedback.GET("/:id/log", validID, feedbackHandler.Log)
	}

	return r
}
