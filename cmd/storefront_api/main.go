package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/data/cache"
	"github.com/gamevault-settlement/internal/data/mongo"
	"github.com/gamevault-settlement/internal/data/postgres"
	"github.com/gamevault-settlement/internal/logger"
	"github.com/gamevault-settlement/internal/platform/auth"
	"github.com/gamevault-settlement/internal/platform/gateway"
	"github.com/gamevault-settlement/internal/platform/messaging/producers"
	"github.com/gamevault-settlement/internal/platform/metrics"
	"github.com/gamevault-settlement/internal/platform/persistence"
	"github.com/gamevault-settlement/internal/platform/ratelimit"
	"github.com/gamevault-settlement/internal/settlement"
	"github.com/gamevault-settlement/internal/storefront_api"
	"github.com/gamevault-settlement/internal/storefront_api/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("storefront_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Storefront API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.RateLimit.Backend == "redis" {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
	}

	// Kafka producer for verified gateway callbacks
	callbackProducer, err := producers.NewCallbackProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize callback Kafka producer", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.NewRegistry())

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	itemRepo := postgres.NewItemRepository(log, postgresDB)
	projectionRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	gatewayClient := gateway.NewClient(cfg.Gateway, log)

	engineOpts := []settlement.Option{settlement.WithRecorder(m)}
	var items service.ItemReader = itemRepo
	if cfg.Cache.Enabled {
		itemCache := cache.NewItemCache(itemRepo, redisClient, cfg.Cache.ItemTTL, log)
		engineOpts = append(engineOpts, settlement.WithItemCache(itemCache))
		items = itemCache
	}

	engine := settlement.NewEngine(postgres.NewUnitOfWork(log, postgresDB), gatewayClient, cfg.Settlement, log, engineOpts...)

	limiter, err := ratelimit.New(cfg.RateLimit, redisClient)
	if err != nil {
		log.Error("Failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}

	server := storefront_api.NewServer(log, cfg, storefront_api.Dependencies{
		Settlement: engine,
		Items:      items,
		Accounts:   service.NewAccountService(accountRepo, projectionRepo),
		Callbacks:  service.NewCallbackService(log, gatewayClient, callbackProducer),
		Verifier:   auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Leeway),
		Limiter:    limiter,
		Metrics:    m,
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	go func() {
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	log.Info("Starting graceful shutdown...")

	// Drain HTTP first so in-flight settlements still have their stores
	if err = server.Stop(context.Background()); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = callbackProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
