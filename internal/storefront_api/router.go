package storefront_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/platform/ratelimit"
	"github.com/gamevault-settlement/internal/storefront_api/handler"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
)

// Handlers groups the route handlers
type Handlers struct {
	Items    *handler.ItemHandler
	TopUps   *handler.TopUpHandler
	Payments *handler.PaymentHandler
	Accounts *handler.AccountHandler
	Admin    *handler.AdminHandler
}

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	h Handlers,
	verifier middleware.TokenVerifier,
	limiter ratelimit.Limiter,
	recorder middleware.HTTPRecorder,
	metricsHandler http.Handler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	if recorder != nil {
		r.Use(middleware.Metrics(recorder))
	}

	authenticated := []gin.HandlerFunc{middleware.Authenticate(logger, verifier)}
	if limiter != nil {
		authenticated = append(authenticated, middleware.RateLimit(logger, limiter))
	}

	v1 := r.Group("/api/v1")
	{
		public := v1.Group("")
		if limiter != nil {
			public.Use(middleware.RateLimit(logger, limiter))
		}
		public.GET("/items/:id", h.Items.GetByID)

		// Gateway webhook, authenticated by its signature
		v1.POST("/payments/callback", h.Payments.Callback)

		private := v1.Group("", authenticated...)
		{
			private.POST("/items/:id/purchase", h.Items.Purchase)

			private.POST("/topups", h.TopUps.Create)
			private.GET("/topups/:reference", h.TopUps.Check)

			private.GET("/accounts/me", h.Accounts.Me)
			private.GET("/accounts/me/ledger", h.Accounts.Ledger)
		}

		admin := v1.Group("/admin", authenticated...)
		{
			admin.POST("/orders/:id/refund", h.Admin.Refund)
			admin.POST("/accounts/:id/adjustments", h.Admin.Adjust)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
