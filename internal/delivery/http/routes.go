package http

import (
	"github.com/bitebudget/backend/config"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the Gin router.
// limiter may be nil to disable rate limiting.
func SetupRouter(cfg *config.Config, handler *Handler, limiter *RateLimiter, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if limiter != nil {
		v1.Use(limiter.Middleware())
	}
	{
		lists := v1.Group("/shopping-lists")
		{
			lists.GET("", handler.ListShoppingLists)
			lists.POST("", handler.CreateShoppingList)
			lists.GET("/:id", handler.GetShoppingList)
			lists.PUT("/:id", handler.UpdateShoppingList)
			lists.DELETE("/:id", handler.DeleteShoppingList)
			lists.PATCH("/:id/items/:index", handler.SetItemCompleted)
			lists.POST("/:id/reconcile", handler.ReconcileShoppingList)
		}

		receipts := v1.Group("/receipts")
		{
			receipts.GET("", handler.ListReceipts)
			receipts.POST("", handler.CreateReceipt)
			receipts.GET("/:id", handler.GetReceipt)
			receipts.DELETE("/:id", handler.DeleteReceipt)
		}

		v1.POST("/reconcile", handler.Reconcile)
	}

	return router
}
