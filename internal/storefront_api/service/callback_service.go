package service

import (
	"context"
	"log/slog"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/messaging/producers"
)

// CallbackServiceImpl verifies webhooks and publishes them to the callback topic keyed by reference
type CallbackServiceImpl struct {
	verifier CallbackVerifier
	producer producers.MessagePublisher
	logger   *slog.Logger
}

// NewCallbackService creates a new callback service
func NewCallbackService(logger *slog.Logger, verifier CallbackVerifier, producer producers.MessagePublisher) CallbackService {
	return &CallbackServiceImpl{
		verifier: verifier,
		producer: producer,
		logger:   logger,
	}
}

// Accept verifies body and publishes the result. Nothing is published for a bad signature.
func (s *CallbackServiceImpl) Accept(ctx context.Context, body []byte, correlationID string) (*shared.GatewayResult, error) {
	result, err := s.verifier.VerifyCallback(body)
	if err != nil {
		s.logger.Warn("Rejected gateway callback", "correlation_id", correlationID, "error", err)
		return nil, err
	}
	result.CorrelationID = correlationID

	if err := s.producer.Publish(ctx, result.Reference, result); err != nil {
		s.logger.Error("Failed to publish gateway callback",
			"reference", result.Reference,
			"order_code", result.OrderCode,
			"correlation_id", correlationID,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Gateway callback accepted",
		"reference", result.Reference,
		"status", result.Status,
		"amount", result.Amount,
		"correlation_id", correlationID,
	)

	return result, nil
}
