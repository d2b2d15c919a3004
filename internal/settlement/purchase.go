package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/shared"
)

const (
	opPurchase = "purchase"

	invalidateTimeout = 2 * time.Second
)

// Purchase sells itemID to the principal, paying from the wallet balance. The item row is
// locked before the buyer row so that concurrent buyers of one item serialize on the item
// and exactly one of them can succeed.
func (e *Engine) Purchase(ctx context.Context, p shared.Principal, itemID uuid.UUID) (*order.Order, error) {
	started := e.clock.Now()

	var placed *order.Order
	err := e.run(ctx, opPurchase, func(ctx context.Context, s Stores) error {
		placed = nil

		it, err := s.Items.LockForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, item.ErrItemNotFound{}) {
				return fmt.Errorf("%w: item %s does not exist", shared.ErrItemUnavailable, itemID)
			}
			return err
		}
		if !it.IsAvailable() {
			return fmt.Errorf("%w: item %s is %s", shared.ErrItemUnavailable, it.ID, it.Status)
		}

		buyer, err := s.Accounts.LockForUpdate(ctx, p.AccountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return fmt.Errorf("%w: %s", shared.ErrBuyerNotFound, p.AccountID)
			}
			return err
		}

		now := e.clock.Now()
		before, err := buyer.Debit(it.Price, now)
		if err != nil {
			if errors.Is(err, shared.ErrInsufficientBalance) {
				return fmt.Errorf("%w: balance %s is below price %s", shared.ErrInsufficientBalance, buyer.Balance, it.Price)
			}
			return err
		}
		if err := it.MarkSold(buyer.ID, now); err != nil {
			return err
		}

		o := order.NewCompletedOrder(buyer.ID, it.ID, it.Price, now)
		entry := ledger.NewSettledEntry(buyer.ID, shared.EntryTypePurchase, it.Price.Neg(), before,
			"Purchase of item "+it.Title, now).WithOrder(o.ID)

		if err := s.Orders.Create(ctx, o); err != nil {
			return err
		}
		if err := s.Items.UpdateStatus(ctx, it); err != nil {
			return err
		}
		if err := s.Accounts.UpdateBalance(ctx, buyer); err != nil {
			return err
		}
		if err := appendLedger(ctx, s, entry); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, e.finish(opPurchase, started, err)
	}

	e.invalidateItem(ctx, itemID)
	e.logger.Info("Purchase settled",
		"order_id", placed.ID.String(),
		"item_id", itemID.String(),
		"buyer_id", p.AccountID.String(),
		"amount", placed.TotalAmount.String(),
	)

	return placed, e.finish(opPurchase, started, nil)
}

// invalidateItem runs after commit and survives the caller going away
func (e *Engine) invalidateItem(ctx context.Context, itemID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
	defer cancel()

	if err := e.cache.Invalidate(ctx, itemID); err != nil {
		e.logger.Warn("Failed to invalidate cached item", "item_id", itemID.String(), "error", err)
	}
}
