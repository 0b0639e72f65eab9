package http

import (
	"github.com/gin-gonic/gin"

	"github.com/bidlens/backend/config"
	"github.com/bidlens/backend/internal/domain"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, limiterStore domain.LimiterStore) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(limiterStore, cfg.RateLimit.PerIP))
	{
		bids := v1.Group("/bids")
		bids.Use(MaxUploadMiddleware(cfg.Compare.MaxUploadMB))
		{
			bids.POST("/compare", handler.CompareBids)
			bids.POST("/export", handler.ExportFull)
			bids.POST("/export/matrix", handler.ExportMatrix)
			bids.POST("/export/chapters", handler.ExportChapters)
		}
	}

	return router
}
