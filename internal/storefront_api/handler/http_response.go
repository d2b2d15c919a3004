package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
)

// Response represents a successful API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorResponse represents a failed API response
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// MetaInfo represents metadata in a response
type MetaInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// NewPaginatedResponse creates a new paginated response
func NewPaginatedResponse(data interface{}, page, pageSize int, totalItems int64) *Response {
	totalPages := int(totalItems / int64(pageSize))
	if totalItems%int64(pageSize) > 0 {
		totalPages++
	}

	return &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	}
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithPaginatedData sends a JSON response with paginated data
func RespondWithPaginatedData(c *gin.Context, data interface{}, page, pageSize int, totalItems int64) {
	response := NewPaginatedResponse(data, page, pageSize, totalItems)
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(http.StatusOK, response)
}

// RespondWithError sends a JSON error body
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, &ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondUnauthorized sends a 401 Unauthorized response with an error
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// RespondNotFound sends a 404 Not Found response with an error
func RespondNotFound(c *gin.Context, code, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, code, message)
}

// RespondInternalError sends a 500 response without leaking the cause
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_FAILURE", "An internal error occurred")
}

// StatusFor maps a settlement error code onto its HTTP status
func StatusFor(code string) int {
	switch code {
	case "ITEM_UNAVAILABLE", "INSUFFICIENT_BALANCE", "AMOUNT_TOO_LOW", "INVALID_AMOUNT", "ORDER_NOT_REFUNDABLE":
		return http.StatusBadRequest
	case "BUYER_NOT_FOUND", "TRANSACTION_NOT_FOUND", "ORDER_NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_SIGNATURE":
		return http.StatusUnauthorized
	case "FORBIDDEN":
		return http.StatusForbidden
	case "CONTENTION":
		return http.StatusConflict
	case "GATEWAY_ERROR":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondSettlementError writes err using the settlement taxonomy. Internal failures are
// logged with the correlation id and answered with a generic message.
func RespondSettlementError(c *gin.Context, logger *slog.Logger, operation string, err error) {
	code := shared.ErrorCode(err)
	status := StatusFor(code)

	if status == http.StatusInternalServerError {
		logger.Error("Settlement operation failed",
			"operation", operation,
			"correlation_id", middleware.GetCorrelationID(c),
			"error", err,
		)
		_ = c.Error(err)
		RespondInternalError(c)
		return
	}

	RespondWithError(c, status, code, publicMessage(err))
}

// publicMessage returns the matching sentinel text. Amount errors keep their detail.
func publicMessage(err error) string {
	for _, sentinel := range []error{
		shared.ErrItemUnavailable,
		shared.ErrBuyerNotFound,
		shared.ErrInsufficientBalance,
		shared.ErrAmountTooLow,
		shared.ErrGateway,
		shared.ErrTransactionNotFound,
		shared.ErrContention,
		shared.ErrForbidden,
		shared.ErrOrderNotFound,
		shared.ErrOrderNotRefundable,
		shared.ErrInvalidAmount,
		shared.ErrInvalidSignature,
	} {
		if errors.Is(err, sentinel) {
			if sentinel == shared.ErrAmountTooLow || sentinel == shared.ErrInvalidAmount {
				return err.Error()
			}
			return sentinel.Error()
		}
	}
	return err.Error()
}
