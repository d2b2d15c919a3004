package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// WorkerPoolProcessingService bounds how many gateway results are settled concurrently
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessResult runs the base service on a pooled worker and waits for its outcome. The
// caller stops waiting when ctx is done; the worker still finishes its unit of work.
func (s *WorkerPoolProcessingService) ProcessResult(ctx context.Context, result *shared.GatewayResult) error {
	logger := s.logger
	if result.CorrelationID != "" {
		logger = s.logger.With("correlation_id", result.CorrelationID)
	}

	logger.Debug("Submitting gateway result to worker pool", "reference", result.Reference)

	resultChan := make(chan error, 1)
	resultCopy := *result

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.ProcessResult(ctx, &resultCopy)
	})
	if err != nil {
		logger.Error("Failed to submit gateway result to worker pool",
			"reference", result.Reference,
			"error", err,
		)
		return fmt.Errorf("failed to submit to worker pool: %w", err)
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
