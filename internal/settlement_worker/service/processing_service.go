package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// ErrMalformedResult marks a gateway result that can never be applied
var ErrMalformedResult = errors.New("malformed gateway result")

// ProcessingServiceImpl hands gateway results to the settlement engine
type ProcessingServiceImpl struct {
	engine   ResultApplier
	recorder CallbackRecorder
	logger   *slog.Logger
}

// NewProcessingService creates a new processing service. recorder may be nil.
func NewProcessingService(engine ResultApplier, recorder CallbackRecorder, logger *slog.Logger) *ProcessingServiceImpl {
	return &ProcessingServiceImpl{
		engine:   engine,
		recorder: recorder,
		logger:   logger,
	}
}

// ProcessResult applies result. Replays of an already settled top-up succeed without a
// second credit.
func (s *ProcessingServiceImpl) ProcessResult(ctx context.Context, result *shared.GatewayResult) error {
	err := s.process(ctx, result)
	if s.recorder != nil {
		s.recorder.ObserveCallback(err)
	}
	return err
}

func (s *ProcessingServiceImpl) process(ctx context.Context, result *shared.GatewayResult) error {
	if result == nil || (result.OrderCode <= 0 && strings.TrimSpace(result.Reference) == "") {
		return fmt.Errorf("%w: order code or reference is required", ErrMalformedResult)
	}

	logger := s.logger.With("reference", result.Reference, "order_code", result.OrderCode)
	if result.CorrelationID != "" {
		logger = logger.With("correlation_id", result.CorrelationID)
	}

	tx, err := s.engine.HandleGatewayResult(ctx, *result)
	if err != nil {
		return fmt.Errorf("failed to apply gateway result %s: %w", result.Reference, err)
	}

	logger.Info("Gateway result processed", "topup_status", tx.Status, "account_id", tx.AccountID.String())
	return nil
}

// IsRetryable reports whether err may succeed on redelivery. Contention and unexpected
// failures are retryable; every other taxonomy error is final for the message.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrMalformedResult) {
		return false
	}
	switch shared.ErrorCode(err) {
	case "CONTENTION", "INTERNAL_FAILURE":
		return true
	default:
		return false
	}
}
