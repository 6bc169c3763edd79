package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jafarshop/groceryadmin/internal/api/handlers"
	"github.com/jafarshop/groceryadmin/internal/api/middleware"
	"github.com/jafarshop/groceryadmin/internal/config"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, console *handlers.Console, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	if cfg.Console.KeyHash != "" {
		v1.Use(middleware.ConsoleKeyMiddleware(cfg.Console.KeyHash, logger))
	} else {
		logger.Warn("CONSOLE_KEY_HASH not set, console is unauthenticated")
	}
	{
		v1.POST("/login", handlers.HandleLogin(console, logger))
		v1.POST("/logout", handlers.HandleLogout(console, logger))
		v1.GET("/notifications", handlers.HandleNotifications(console))

		v1.GET("/products", handlers.HandleListProducts(console, logger))
		v1.POST("/products", handlers.HandleCreateProduct(console, logger))
		v1.POST("/products/csv", handlers.HandleUploadProductsCSV(console, logger))
		v1.PUT("/products/:id", handlers.HandleUpdateProduct(console, logger))
		v1.DELETE("/products/:id", handlers.HandleDeleteProduct(console, logger))
		v1.POST("/products/:id/image", handlers.HandleUploadProductImage(console, logger))
		v1.POST("/products/:id/enable", handlers.HandleSetProductActive(console, true, logger))
		v1.POST("/products/:id/disable", handlers.HandleSetProductActive(console, false, logger))

		v1.GET("/orders", handlers.HandleListOrders(console, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(console, logger))
		v1.GET("/orders/:id/timeline", handlers.HandleGetOrderTimeline(console, logger))
		v1.GET("/orders/:id/receipt", handlers.HandleGetReceipt(console, logger))
		v1.POST("/orders/:id/advance", handlers.HandleAdvanceOrder(console, logger))
		v1.POST("/orders/:id/cancel", handlers.HandleCancelOrder(console, logger))
		v1.POST("/orders/:id/assign", handlers.HandleAssignOrder(console, logger))

		v1.GET("/delivery", handlers.HandleListDeliveryOrders(console, logger))
		v1.POST("/delivery/assign", handlers.HandleBulkAssign(console, logger))

		v1.GET("/feedback", handlers.HandleListFeedback(console, logger))
		v1.GET("/issues", handlers.HandleListIssues(console, logger))
		v1.POST("/issues/:id/acknowledge", handlers.HandleAcknowledgeIssue(console, logger))
		v1.POST("/issues/:id/resolve", handlers.HandleResolveIssue(console, logger))

		v1.GET("/dashboard", handlers.HandleDashboard(console, logger))
		v1.GET("/audit", handlers.HandleListAudit(console, logger))
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
