package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// Order records one purchase of an item paid from the buyer's balance
type Order struct {
	ID            uuid.UUID            `json:"id"`
	BuyerID       uuid.UUID            `json:"buyer_id"`
	ItemID        uuid.UUID            `json:"item_id"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Status        shared.OrderStatus   `json:"status"`
	PaymentMethod shared.PaymentMethod `json:"payment_method"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewCompletedOrder creates an order that was settled from balance in the same unit of work
func NewCompletedOrder(buyerID, itemID uuid.UUID, total decimal.Decimal, at time.Time) *Order {
	return &Order{
		ID:            uuid.New(),
		BuyerID:       buyerID,
		ItemID:        itemID,
		TotalAmount:   total,
		Status:        shared.OrderStatusCompleted,
		PaymentMethod: shared.PaymentMethodBalance,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// Cancel moves a COMPLETED order to CANCELLED as part of a refund
func (o *Order) Cancel(at time.Time) error {
	if o.Status != shared.OrderStatusCompleted {
		return fmt.Errorf("%w: order %s is %s", shared.ErrOrderNotRefundable, o.ID, o.Status)
	}
	o.Status = shared.OrderStatusCancelled
	o.UpdatedAt = at
	return nil
}
