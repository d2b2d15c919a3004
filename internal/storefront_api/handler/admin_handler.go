package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/storefront_api/service"
)

// AdminHandler exposes refunds and manual adjustments. Authorization is enforced by the
// settlement engine from the principal's admin flag.
type AdminHandler struct {
	settlement service.SettlementService
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, settlement service.SettlementService) *AdminHandler {
	return &AdminHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// Refund cancels a completed order and credits the buyer
func (h *AdminHandler) Refund(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	orderID, ok := parseUUIDParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	var req RefundOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	o, err := h.settlement.RefundOrder(c.Request.Context(), p, orderID, req.Reason)
	if err != nil {
		RespondSettlementError(c, h.logger, "refund_order", err)
		return
	}

	RespondOK(c, mapOrderToResponse(o))
}

// Adjust applies a signed manual balance correction
func (h *AdminHandler) Adjust(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	accountID, ok := parseUUIDParam(c, "id", "Invalid account ID")
	if !ok {
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.settlement.AdjustBalance(c.Request.Context(), p, accountID, req.Amount, req.Reason)
	if err != nil {
		RespondSettlementError(c, h.logger, "adjust_balance", err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}
