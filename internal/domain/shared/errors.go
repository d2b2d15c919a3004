package shared

import "errors"

// Settlement error taxonomy. Engine operations wrap one of these with context, callers match with errors.Is.
var (
	ErrItemUnavailable     = errors.New("item is not available for purchase")
	ErrBuyerNotFound       = errors.New("buyer account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAmountTooLow        = errors.New("amount is below the minimum top-up")
	ErrGateway             = errors.New("payment gateway error")
	ErrTransactionNotFound = errors.New("top-up transaction not found")
	ErrContention          = errors.New("resource is busy, retry later")
	ErrInternal            = errors.New("internal failure")

	ErrForbidden          = errors.New("operation requires administrator privileges")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotRefundable = errors.New("order cannot be refunded")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidSignature   = errors.New("invalid gateway signature")
)

// ErrorCode maps an error onto its stable wire code. Unknown errors are INTERNAL_FAILURE.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, ErrItemUnavailable):
		return "ITEM_UNAVAILABLE"
	case errors.Is(err, ErrBuyerNotFound):
		return "BUYER_NOT_FOUND"
	case errors.Is(err, ErrInsufficientBalance):
		return "INSUFFICIENT_BALANCE"
	case errors.Is(err, ErrAmountTooLow):
		return "AMOUNT_TOO_LOW"
	case errors.Is(err, ErrGateway):
		return "GATEWAY_ERROR"
	case errors.Is(err, ErrTransactionNotFound):
		return "TRANSACTION_NOT_FOUND"
	case errors.Is(err, ErrContention):
		return "CONTENTION"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrOrderNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, ErrOrderNotRefundable):
		return "ORDER_NOT_REFUNDABLE"
	case errors.Is(err, ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	default:
		return "INTERNAL_FAILURE"
	}
}
