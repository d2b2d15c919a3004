package storefront_api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/platform/metrics"
	"github.com/gamevault-settlement/internal/platform/ratelimit"
	"github.com/gamevault-settlement/internal/storefront_api/handler"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
	"github.com/gamevault-settlement/internal/storefront_api/service"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	Settlement service.SettlementService
	Items      service.ItemReader
	Accounts   service.AccountService
	Callbacks  service.CallbackService
	Verifier   middleware.TokenVerifier
	Limiter    ratelimit.Limiter
	Metrics    *metrics.Metrics
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger          *slog.Logger
	httpServer      *http.Server
	httpRouter      *gin.Engine
	shutdownTimeout time.Duration
}

// NewServer creates and configures a new HTTP server
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	handlers := Handlers{
		Items:    handler.NewItemHandler(log, deps.Items, deps.Settlement),
		TopUps:   handler.NewTopUpHandler(log, deps.Settlement),
		Payments: handler.NewPaymentHandler(log, deps.Callbacks),
		Accounts: handler.NewAccountHandler(log, deps.Accounts),
		Admin:    handler.NewAdminHandler(log, deps.Settlement),
	}

	var (
		recorder       middleware.HTTPRecorder
		metricsHandler http.Handler
	)
	if deps.Metrics != nil {
		recorder = deps.Metrics
		metricsHandler = deps.Metrics.Handler()
	}

	setupRouter(log, httpRouter, handlers, deps.Verifier, deps.Limiter, recorder, metricsHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		httpRouter:      httpRouter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
