package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
	"github.com/gamevault-settlement/internal/storefront_api/service"
)

const maxCallbackBytes = 64 << 10

// PaymentHandler receives gateway webhooks
type PaymentHandler struct {
	callbacks service.CallbackService
	logger    *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, callbacks service.CallbackService) *PaymentHandler {
	return &PaymentHandler{
		callbacks: callbacks,
		logger:    logger,
	}
}

// Callback verifies the webhook signature and queues the result for settlement. A non-2xx
// answer makes the gateway redeliver, so only bad signatures and queueing failures fail.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBytes))
	if err != nil {
		RespondBadRequest(c, "Unreadable request body")
		return
	}

	result, err := h.callbacks.Accept(c.Request.Context(), body, middleware.GetCorrelationID(c))
	if err != nil {
		if errors.Is(err, shared.ErrInvalidSignature) {
			RespondWithError(c, http.StatusUnauthorized, "INVALID_SIGNATURE", shared.ErrInvalidSignature.Error())
			return
		}
		h.logger.Error("Failed to queue gateway callback", "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, CallbackAck{Reference: result.Reference, Status: result.Status})
}
