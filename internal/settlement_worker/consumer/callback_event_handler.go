package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/messaging/producers"
	"github.com/gamevault-settlement/internal/settlement_worker/service"
)

// RetryPolicy bounds the in-place retries of a retryable settlement failure
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // Multiplied by the attempt number
}

// CallbackEventHandler handles verified gateway results consumed from Kafka
type CallbackEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	retry             RetryPolicy
	logger            *slog.Logger
}

// NewCallbackEventHandler creates a new handler. producer may be nil when no dead-letter
// topic is configured.
func NewCallbackEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
	retry RetryPolicy,
) *CallbackEventHandler {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	return &CallbackEventHandler{
		processingService: processingService,
		producer:          producer,
		retry:             retry,
		logger:            logger,
	}
}

// HandleMessage settles one message. Returning nil commits the offset: undecodable and
// permanently failing messages are committed once parked on the dead-letter topic.
func (h *CallbackEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var result shared.GatewayResult
	if err := json.Unmarshal(value, &result); err != nil {
		h.logger.Error("Failed to unmarshal gateway result from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		if h.deadLetter(ctx, key, value, "undecodable gateway result: "+err.Error()) {
			return nil
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	logger := h.logger
	if result.CorrelationID != "" {
		logger = h.logger.With("correlation_id", result.CorrelationID)
	}

	logger.Info("Received gateway result for settlement",
		"reference", result.Reference,
		"order_code", result.OrderCode,
		"status", result.Status,
	)

	err := h.settle(ctx, logger, &result)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("settling gateway result %s interrupted: %w", result.Reference, err)
	}

	reason := err.Error()
	if service.IsRetryable(err) {
		logger.Error("Retries exhausted for gateway result, parking it",
			"reference", result.Reference,
			"order_code", result.OrderCode,
			"attempts", h.retry.MaxAttempts,
			"error", err,
		)
		reason = fmt.Sprintf("retries exhausted after %d attempts: %s", h.retry.MaxAttempts, err)
	} else {
		logger.Warn("Gateway result rejected", "reference", result.Reference, "code", shared.ErrorCode(err), "error", err)
	}

	if h.deadLetter(ctx, key, value, reason) {
		return nil
	}
	return fmt.Errorf("settling gateway result %s failed: %w", result.Reference, err)
}

// settle applies result, retrying contention and unexpected failures up to the policy limit
func (h *CallbackEventHandler) settle(ctx context.Context, logger *slog.Logger, result *shared.GatewayResult) error {
	var err error
	for attempt := 1; attempt <= h.retry.MaxAttempts; attempt++ {
		err = h.processingService.ProcessResult(ctx, result)
		if err == nil || !service.IsRetryable(err) || attempt == h.retry.MaxAttempts {
			return err
		}

		logger.Warn("Failed to settle gateway result, retrying",
			"reference", result.Reference,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(h.retry.Backoff * time.Duration(attempt)):
		}
	}
	return err
}

// deadLetter reports whether the message was parked
func (h *CallbackEventHandler) deadLetter(ctx context.Context, key, value []byte, reason string) bool {
	if h.producer == nil {
		return false
	}
	if err := h.producer.PublishToDLQ(ctx, string(key), value, reason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"message_key", string(key),
		)
		return false
	}
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return true
}
