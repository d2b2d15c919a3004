package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/settlement"
)

// CreateTopUpRequest represents a request to top the wallet up
type CreateTopUpRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RefundOrderRequest represents an admin refund
type RefundOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// AdjustBalanceRequest represents an admin balance adjustment
type AdjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page     int `form:"page,default=1" binding:"min=1"`
	PageSize int `form:"page_size,default=20" binding:"min=1,max=100"`
}

// ItemResponse represents an item in API responses
type ItemResponse struct {
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Game   string          `json:"game"`
	Price  decimal.Decimal `json:"price"`
	Status string          `json:"status"`
	Images []string        `json:"images"`
	Ranks  []string        `json:"ranks"`
	SoldAt string          `json:"sold_at,omitempty"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            string          `json:"id"`
	BuyerID       string          `json:"buyer_id"`
	ItemID        string          `json:"item_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// TopUpResponse represents a top-up in API responses
type TopUpResponse struct {
	Reference   string          `json:"reference"`
	OrderCode   int64           `json:"order_code"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
	CompletedAt string          `json:"completed_at,omitempty"`
}

// AccountResponse represents the caller's wallet
type AccountResponse struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	IsAdmin   bool            `json:"is_admin"`
	UpdatedAt string          `json:"updated_at"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        string          `json:"status"`
	OrderID       string          `json:"order_id,omitempty"`
	TopUpID       string          `json:"topup_id,omitempty"`
	Description   string          `json:"description"`
	CreatedAt     string          `json:"created_at"`
}

// CallbackAck is returned to the gateway once a callback is queued
type CallbackAck struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func mapItemToResponse(it *item.Item) ItemResponse {
	images, ranks := it.Images, it.Ranks
	if images == nil {
		images = []string{}
	}
	if ranks == nil {
		ranks = []string{}
	}
	return ItemResponse{
		ID:     it.ID.String(),
		Title:  it.Title,
		Game:   it.Game,
		Price:  it.Price,
		Status: string(it.Status),
		Images: images,
		Ranks:  ranks,
		SoldAt: formatTimePtr(it.SoldAt),
	}
}

func mapOrderToResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:            o.ID.String(),
		BuyerID:       o.BuyerID.String(),
		ItemID:        o.ItemID.String(),
		TotalAmount:   o.TotalAmount,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     formatTime(o.CreatedAt),
		UpdatedAt:     formatTime(o.UpdatedAt),
	}
}

func mapCheckoutToResponse(c *settlement.TopUpCheckout) TopUpResponse {
	return TopUpResponse{
		Reference:   c.Reference,
		OrderCode:   c.OrderCode,
		Amount:      c.Amount,
		Status:      string(c.Status),
		CheckoutURL: c.CheckoutURL,
	}
}

func mapTopUpToResponse(t *topup.Transaction) TopUpResponse {
	return TopUpResponse{
		Reference:   t.Reference,
		OrderCode:   t.OrderCode,
		Amount:      t.Amount,
		Status:      string(t.Status),
		CheckoutURL: t.CheckoutURL,
		CreatedAt:   formatTime(t.CreatedAt),
		CompletedAt: formatTimePtr(t.CompletedAt),
	}
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Username:  acc.Username,
		Email:     acc.Email,
		Balance:   acc.Balance,
		IsAdmin:   acc.IsAdmin,
		UpdatedAt: formatTime(acc.UpdatedAt),
	}
}

func mapEntryToResponse(e *ledger.Entry) LedgerEntryResponse {
	resp := LedgerEntryResponse{
		ID:            e.ID.String(),
		Type:          string(e.Type),
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		Status:        string(e.Status),
		Description:   e.Description,
		CreatedAt:     formatTime(e.CreatedAt),
	}
	if e.OrderID != nil {
		resp.OrderID = e.OrderID.String()
	}
	if e.TopUpID != nil {
		resp.TopUpID = e.TopUpID.String()
	}
	return resp
}
