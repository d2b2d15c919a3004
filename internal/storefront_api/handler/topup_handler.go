package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/storefront_api/service"
)

// TopUpHandler handles wallet top-ups
type TopUpHandler struct {
	settlement service.SettlementService
	logger     *slog.Logger
}

// NewTopUpHandler creates a new top-up handler
func NewTopUpHandler(logger *slog.Logger, settlement service.SettlementService) *TopUpHandler {
	return &TopUpHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// Create starts a top-up and returns the gateway checkout link
func (h *TopUpHandler) Create(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req CreateTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	checkout, err := h.settlement.CreateTopUp(c.Request.Context(), p, req.Amount)
	if err != nil {
		RespondSettlementError(c, h.logger, "create_topup", err)
		return
	}

	RespondCreated(c, mapCheckoutToResponse(checkout))
}

// Check returns the caller's top-up, reconciling it with the gateway when still open
func (h *TopUpHandler) Check(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	reference := strings.TrimSpace(c.Param("reference"))
	if reference == "" {
		RespondBadRequest(c, "Reference is required")
		return
	}

	tx, err := h.settlement.CheckTopUp(c.Request.Context(), p, reference)
	if err != nil {
		RespondSettlementError(c, h.logger, "check_topup", err)
		return
	}

	RespondOK(c, mapTopUpToResponse(tx))
}
