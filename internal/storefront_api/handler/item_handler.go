package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
	"github.com/gamevault-settlement/internal/storefront_api/service"
)

// ItemHandler serves listings and purchases
type ItemHandler struct {
	items      service.ItemReader
	settlement service.SettlementService
	logger     *slog.Logger
}

// NewItemHandler creates a new item handler
func NewItemHandler(logger *slog.Logger, items service.ItemReader, settlement service.SettlementService) *ItemHandler {
	return &ItemHandler{
		items:      items,
		settlement: settlement,
		logger:     logger,
	}
}

// GetByID returns a single listing
func (h *ItemHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id", "Invalid item ID")
	if !ok {
		return
	}

	it, err := h.items.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, item.ErrItemNotFound{}) {
			RespondNotFound(c, "ITEM_NOT_FOUND", "Item not found")
			return
		}
		h.logger.Error("Failed to get item", "id", id.String(), "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapItemToResponse(it))
}

// Purchase buys the item with the caller's wallet balance
func (h *ItemHandler) Purchase(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id", "Invalid item ID")
	if !ok {
		return
	}

	o, err := h.settlement.Purchase(c.Request.Context(), p, id)
	if err != nil {
		RespondSettlementError(c, h.logger, "purchase", err)
		return
	}

	RespondCreated(c, mapOrderToResponse(o))
}

// parseUUIDParam answers 400 and returns false when the path parameter is not a UUID
func parseUUIDParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// requirePrincipal answers 401 when no authenticated principal is attached
func requirePrincipal(c *gin.Context) (shared.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok || p.IsZero() {
		RespondUnauthorized(c, "")
		return shared.Principal{}, false
	}
	return p, true
}
