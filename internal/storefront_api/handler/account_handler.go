package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
	"github.com/gamevault-settlement/internal/storefront_api/service"
)

// AccountHandler handles the caller's wallet views
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Me returns the caller's account and balance
func (h *AccountHandler) Me(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), p.AccountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "BUYER_NOT_FOUND", "Account not found")
			return
		}
		h.logger.Error("Failed to get account", "id", p.AccountID.String(), "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapAccountToResponse(acc))
}

// Ledger returns the caller's ledger history, newest first
func (h *AccountHandler) Ledger(c *gin.Context) {
	p, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.accountService.GetLedger(c.Request.Context(), p.AccountID, params.Page, params.PageSize)
	if err != nil {
		h.logger.Error("Failed to get ledger", "account_id", p.AccountID.String(), "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
		return
	}

	response := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, mapEntryToResponse(e))
	}

	RespondWithPaginatedData(c, response, params.Page, params.PageSize, total)
}
