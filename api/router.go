package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/tg-scribe-go/api/handlers"
	"github.com/yourusername/tg-scribe-go/api/middleware"
	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// SetupRouter sets up the HTTP router over the run archive
func SetupRouter(runs domain.RunRepository, log *zap.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(runs)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		runHandler := handlers.NewRunHandler(runs, log)
		runGroup := v1.Group("/runs")
		{
			runGroup.GET("", runHandler.ListRuns)
			runGroup.GET("/stats", runHandler.GetStats)
			runGroup.GET("/:id", runHandler.GetRun)
		}
	}

	return router
}
