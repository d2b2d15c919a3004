package order

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/domain/shared"
)

func TestNewCompletedOrder(t *testing.T) {
	buyer, itemID := uuid.New(), uuid.New()
	now := time.Now().UTC()

	o := NewCompletedOrder(buyer, itemID, decimal.NewFromInt(1_200_000), now)

	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, buyer, o.BuyerID)
	assert.Equal(t, itemID, o.ItemID)
	assert.Equal(t, shared.OrderStatusCompleted, o.Status)
	assert.Equal(t, shared.PaymentMethodBalance, o.PaymentMethod)
	assert.True(t, decimal.NewFromInt(1_200_000).Equal(o.TotalAmount))
}

func TestOrder_Cancel(t *testing.T) {
	now := time.Now().UTC()

	t.Run("completed order", func(t *testing.T) {
		o := &Order{ID: uuid.New(), Status: shared.OrderStatusCompleted}
		require.NoError(t, o.Cancel(now))
		assert.Equal(t, shared.OrderStatusCancelled, o.Status)
		assert.Equal(t, now, o.UpdatedAt)
	})

	t.Run("already cancelled", func(t *testing.T) {
		o := &Order{ID: uuid.New(), Status: shared.OrderStatusCancelled}
		assert.ErrorIs(t, o.Cancel(now), shared.ErrOrderNotRefundable)
	})

	t.Run("pending", func(t *testing.T) {
		o := &Order{ID: uuid.New(), Status: shared.OrderStatusPending}
		assert.ErrorIs(t, o.Cancel(now), shared.ErrOrderNotRefundable)
	})
}
