package item

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/domain/shared"
)

func TestNewItem(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		it, err := NewItem("Diamond smurf", "Valorant", decimal.NewFromInt(1_200_000), []string{"a.png", "b.png"}, nil)

		require.NoError(t, err)
		assert.Equal(t, shared.ItemStatusAvailable, it.Status)
		assert.Nil(t, it.BuyerID)
		assert.Equal(t, []string{"a.png", "b.png"}, it.Images)
		assert.Equal(t, []string{}, it.Ranks)
	})

	t.Run("EmptyTitle", func(t *testing.T) {
		_, err := NewItem("", "Valorant", decimal.NewFromInt(1), nil, nil)
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("NegativePrice", func(t *testing.T) {
		_, err := NewItem("x", "Valorant", decimal.NewFromInt(-1), nil, nil)
		assert.ErrorIs(t, err, ErrNegativePrice)
	})
}

func TestItem_MarkSold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	buyer := uuid.New()

	t.Run("AvailableToSold", func(t *testing.T) {
		it := &Item{ID: uuid.New(), Status: shared.ItemStatusAvailable, Version: 1}

		require.NoError(t, it.MarkSold(buyer, now))

		assert.Equal(t, shared.ItemStatusSold, it.Status)
		require.NotNil(t, it.BuyerID)
		assert.Equal(t, buyer, *it.BuyerID)
		require.NotNil(t, it.SoldAt)
		assert.Equal(t, now, *it.SoldAt)
		assert.Equal(t, 2, it.Version)
	})

	for _, status := range []shared.ItemStatus{shared.ItemStatusSold, shared.ItemStatusReserved, shared.ItemStatusHidden} {
		t.Run("Rejects"+string(status), func(t *testing.T) {
			it := &Item{ID: uuid.New(), Status: status, Version: 1}

			err := it.MarkSold(buyer, now)

			assert.ErrorIs(t, err, shared.ErrItemUnavailable)
			assert.Equal(t, status, it.Status)
			assert.Nil(t, it.BuyerID)
			assert.Equal(t, 1, it.Version)
		})
	}
}

func TestItem_Withdraw(t *testing.T) {
	buyer := uuid.New()
	it := &Item{ID: uuid.New(), Status: shared.ItemStatusSold, BuyerID: &buyer, Version: 2}

	it.Withdraw(time.Now())

	assert.Equal(t, shared.ItemStatusHidden, it.Status)
	assert.Equal(t, &buyer, it.BuyerID)
	assert.Equal(t, 3, it.Version)
}
