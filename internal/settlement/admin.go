package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/shared"
)

const (
	opRefundOrder   = "refund_order"
	opAdjustBalance = "adjust_balance"
)

// RefundOrder cancels a COMPLETED order, returns its total to the buyer and withdraws the
// item from sale. Locks are taken order, item, account.
func (e *Engine) RefundOrder(ctx context.Context, p shared.Principal, orderID uuid.UUID, reason string) (*order.Order, error) {
	started := e.clock.Now()
	if !p.IsAdmin {
		return nil, e.finish(opRefundOrder, started, fmt.Errorf("%w: refund of order %s", shared.ErrForbidden, orderID))
	}

	var refunded *order.Order
	err := e.run(ctx, opRefundOrder, func(ctx context.Context, s Stores) error {
		refunded = nil

		o, err := s.Orders.LockForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, order.ErrOrderNotFound{}) {
				return fmt.Errorf("%w: %s", shared.ErrOrderNotFound, orderID)
			}
			return err
		}

		it, err := s.Items.LockForUpdate(ctx, o.ItemID)
		if err != nil {
			if errors.Is(err, item.ErrItemNotFound{}) {
				return fmt.Errorf("%w: item %s of order %s is missing", shared.ErrInternal, o.ItemID, o.ID)
			}
			return err
		}

		buyer, err := s.Accounts.LockForUpdate(ctx, o.BuyerID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return fmt.Errorf("%w: %s", shared.ErrBuyerNotFound, o.BuyerID)
			}
			return err
		}

		now := e.clock.Now()
		if err := o.Cancel(now); err != nil {
			return err
		}
		it.Withdraw(now)

		if err := s.Orders.UpdateStatus(ctx, o.ID, o.Status); err != nil {
			return err
		}
		if err := s.Items.UpdateStatus(ctx, it); err != nil {
			return err
		}

		// Free items are cancelled without a balance movement.
		if o.TotalAmount.IsPositive() {
			before, err := buyer.Credit(o.TotalAmount, now)
			if err != nil {
				return err
			}
			if err := s.Accounts.UpdateBalance(ctx, buyer); err != nil {
				return err
			}
			entry := ledger.NewSettledEntry(buyer.ID, shared.EntryTypeRefund, o.TotalAmount, before,
				describe("Refund of order "+o.ID.String(), reason), now).WithOrder(o.ID)
			if err := appendLedger(ctx, s, entry); err != nil {
				return err
			}
		}

		refunded = o
		return nil
	})
	if err != nil {
		return nil, e.finish(opRefundOrder, started, err)
	}

	e.invalidateItem(ctx, refunded.ItemID)
	e.logger.Info("Order refunded",
		"order_id", refunded.ID.String(),
		"buyer_id", refunded.BuyerID.String(),
		"amount", refunded.TotalAmount.String(),
		"admin_id", p.AccountID.String(),
	)

	return refunded, e.finish(opRefundOrder, started, nil)
}

// AdjustBalance applies a signed manual correction to an account. A negative amount may
// not take the balance below zero.
func (e *Engine) AdjustBalance(ctx context.Context, p shared.Principal, accountID uuid.UUID, amount decimal.Decimal, reason string) (*ledger.Entry, error) {
	started := e.clock.Now()
	if !p.IsAdmin {
		return nil, e.finish(opAdjustBalance, started, fmt.Errorf("%w: adjustment of account %s", shared.ErrForbidden, accountID))
	}
	if amount.IsZero() {
		return nil, e.finish(opAdjustBalance, started, fmt.Errorf("%w: adjustment must be non-zero", shared.ErrInvalidAmount))
	}

	var written *ledger.Entry
	err := e.run(ctx, opAdjustBalance, func(ctx context.Context, s Stores) error {
		written = nil

		acc, err := s.Accounts.LockForUpdate(ctx, accountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return fmt.Errorf("%w: %s", shared.ErrBuyerNotFound, accountID)
			}
			return err
		}

		now := e.clock.Now()
		var before decimal.Decimal
		if amount.IsPositive() {
			before, err = acc.Credit(amount, now)
		} else {
			before, err = acc.Debit(amount.Abs(), now)
		}
		if err != nil {
			if errors.Is(err, shared.ErrInsufficientBalance) {
				return fmt.Errorf("%w: balance %s cannot absorb %s", shared.ErrInsufficientBalance, acc.Balance, amount)
			}
			return err
		}

		entry := ledger.NewSettledEntry(acc.ID, shared.EntryTypeAdjustment, amount, before,
			describe("Manual adjustment", reason), now)

		if err := s.Accounts.UpdateBalance(ctx, acc); err != nil {
			return err
		}
		if err := appendLedger(ctx, s, entry); err != nil {
			return err
		}

		written = entry
		return nil
	})
	if err != nil {
		return nil, e.finish(opAdjustBalance, started, err)
	}

	e.logger.Info("Balance adjusted",
		"account_id", accountID.String(),
		"amount", amount.String(),
		"admin_id", p.AccountID.String(),
	)

	return written, e.finish(opAdjustBalance, started, nil)
}

func describe(base, reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return base
	}
	return base + ": " + reason
}
