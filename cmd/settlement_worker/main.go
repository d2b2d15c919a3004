package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/data/mongo"
	"github.com/gamevault-settlement/internal/data/postgres"
	"github.com/gamevault-settlement/internal/logger"
	"github.com/gamevault-settlement/internal/platform/gateway"
	"github.com/gamevault-settlement/internal/platform/messaging/consumers"
	"github.com/gamevault-settlement/internal/platform/messaging/producers"
	"github.com/gamevault-settlement/internal/platform/metrics"
	"github.com/gamevault-settlement/internal/platform/persistence"
	"github.com/gamevault-settlement/internal/settlement"
	"github.com/gamevault-settlement/internal/settlement_worker/consumer"
	"github.com/gamevault-settlement/internal/settlement_worker/outbox_poller"
	"github.com/gamevault-settlement/internal/settlement_worker/service"
	"github.com/gamevault-settlement/internal/settlement_worker/sweeper"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("settlement_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Settlement Worker",
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

	m := metrics.New(prometheus.NewRegistry())

	// Initialize repositories
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	projectionRepo := mongo.NewLedgerRepository(log, mongoDB.Database())

	engine := settlement.NewEngine(
		postgres.NewUnitOfWork(log, postgresDB),
		gateway.NewClient(cfg.Gateway, log),
		cfg.Settlement,
		log,
		settlement.WithRecorder(m),
	)

	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	processingService, err := service.NewWorkerPoolProcessingService(
		service.NewProcessingService(engine, m, log),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	callbackHandler := consumer.NewCallbackEventHandler(log, processingService, dlqProducer, consumer.RetryPolicy{
		MaxAttempts: cfg.Kafka.HandlerMaxAttempts,
		Backoff:     cfg.Kafka.HandlerRetryBackoff,
	})

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewLedgerPublisher(outboxRepo, projectionRepo, log),
		m,
		log,
	)

	expirySweeper := sweeper.NewExpirySweeper(&cfg.Settlement, engine, m, log)

	// Metrics and liveness for the worker
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, callbackHandler.HandleMessage); err != nil {
		log.Error("Failed to subscribe to callback topic", "error", err)
		os.Exit(1)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		expirySweeper.Start(appCtx)
	}()

	go func() {
		log.Info("Starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	processingService.Shutdown()

	if err = metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping metrics server", "error", err)
	}

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	postgresDB.Close()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelClose()
	if err = mongoDB.Close(closeCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serviceErr != nil {
		log.Error("Settlement Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Settlement Worker shutdown completed with errors")
	} else {
		log.Info("Settlement Worker shutdown completed successfully")
	}
}
