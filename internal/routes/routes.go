package routes

import (
	"net/http"

	"github.com/Cyvadra/signal-relay/internal/handlers"
	"github.com/Cyvadra/signal-relay/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	// API routes
	api := r.Group("/api/v1")
	{
		// Signal webhooks
		webhook := api.Group("/webhook")
		{
			for _, source := range services.SignalSources {
				webhook.POST("/"+source, h.Webhook(source))
			}
		}

		strategies := api.Group("/strategies")
		{
			strategies.POST("", h.CreateStrategy)
			strategies.GET("", h.ListStrategies)
			strategies.GET("/:id", h.GetStrategy)
			strategies.POST("/:id/activate", h.ActivateStrategy)
			strategies.POST("/:id/deactivate", h.DeactivateStrategy)
		}

		api.GET("/trading-mode", h.GetTradingMode)
		api.POST("/trading-mode", h.SetTradingMode)

		brokers := api.Group("/brokers")
		{
			brokers.POST("", h.UpsertBrokerConfig)
			brokers.GET("", h.ListBrokers)
			brokers.GET("/:name/positions", h.GetBrokerPositions)
			brokers.DELETE("/:name/orders/:id", h.CancelBrokerOrder)
		}
		api.GET("/positions", h.GetAllPositions)

		// Ledger
		api.GET("/signals", h.ListSignals)
		api.GET("/trades", h.ListTrades)
	}

	// Health check endpoint
	r.GET("/health", h.Health)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Trading Signal Relay",
			"version": "1.0.0",
			"endpoints": gin.H{
				"chartink":    "/api/v1/webhook/chartink",
				"tradingview": "/api/v1/webhook/tradingview",
				"strategies":  "/api/v1/strategies",
				"health":      "/health",
			},
		})
	})
}
