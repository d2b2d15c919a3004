package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/platform/gateway"
)

const (
	opCreateTopUp   = "create_topup"
	opConfirmTopUp  = "confirm_topup"
	opGatewayResult = "gateway_result"
	opCheckTopUp    = "check_topup"
	opExpireTopUps  = "expire_topups"

	maxReferenceAttempts = 3
)

// TopUpCheckout is what the buyer needs to complete a top-up at the gateway
type TopUpCheckout struct {
	Reference   string             `json:"reference"`
	OrderCode   int64              `json:"order_code"`
	Amount      decimal.Decimal    `json:"amount"`
	Status      shared.TopUpStatus `json:"status"`
	CheckoutURL string             `json:"checkout_url"`
}

// CreateTopUp records a PENDING top-up and asks the gateway for a checkout link. The record
// is committed before the gateway is called; a rejected request marks it FAILED while a
// timeout leaves it PENDING for a later callback or poll to settle.
func (e *Engine) CreateTopUp(ctx context.Context, p shared.Principal, amount decimal.Decimal) (*TopUpCheckout, error) {
	started := e.clock.Now()

	if amount.LessThan(e.cfg.MinTopUpAmount) {
		return nil, e.finish(opCreateTopUp, started,
			fmt.Errorf("%w: %s is below the minimum of %s", shared.ErrAmountTooLow, amount, e.cfg.MinTopUpAmount))
	}
	if !amount.IsInteger() {
		return nil, e.finish(opCreateTopUp, started,
			fmt.Errorf("%w: %s must be a whole amount", shared.ErrInvalidAmount, amount))
	}

	tx, buyer, err := e.recordPendingTopUp(ctx, p, amount)
	if err != nil {
		return nil, e.finish(opCreateTopUp, started, err)
	}

	link, err := e.gateway.CreatePaymentLink(ctx, gateway.CheckoutRequest{
		OrderCode:   tx.OrderCode,
		Amount:      amount.IntPart(),
		Description: tx.Reference,
		BuyerName:   buyer.Username,
		BuyerEmail:  buyer.Email,
	})
	if err != nil {
		if errors.Is(err, gateway.ErrRejected) {
			e.markTopUpFailed(ctx, tx.Reference)
		} else {
			e.logger.Warn("Gateway unavailable, top-up left pending", "reference", tx.Reference, "error", err)
		}
		return nil, e.finish(opCreateTopUp, started, fmt.Errorf("%w: %w", shared.ErrGateway, err))
	}

	// A fast callback may already have settled the record, so only the URL is written back.
	err = e.run(ctx, opCreateTopUp, func(ctx context.Context, s Stores) error {
		current, err := s.TopUps.LockByReference(ctx, tx.Reference)
		if err != nil {
			return err
		}
		current.CheckoutURL = link.CheckoutURL
		current.UpdatedAt = e.clock.Now()
		tx = current
		return s.TopUps.Update(ctx, current)
	})
	if err != nil {
		e.logger.Warn("Failed to store checkout url", "reference", tx.Reference, "error", err)
	}

	e.logger.Info("Top-up created",
		"reference", tx.Reference,
		"order_code", tx.OrderCode,
		"account_id", p.AccountID.String(),
		"amount", amount.String(),
	)

	return &TopUpCheckout{
		Reference:   tx.Reference,
		OrderCode:   tx.OrderCode,
		Amount:      tx.Amount,
		Status:      tx.Status,
		CheckoutURL: link.CheckoutURL,
	}, e.finish(opCreateTopUp, started, nil)
}

// recordPendingTopUp commits a new PENDING record, minting a fresh reference on collision
func (e *Engine) recordPendingTopUp(ctx context.Context, p shared.Principal, amount decimal.Decimal) (*topup.Transaction, *account.Account, error) {
	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		candidate, err := topup.NewPending(p.AccountID, amount, e.clock.Now(), e.entropy)
		if err != nil {
			return nil, nil, err
		}

		var buyer *account.Account
		err = e.run(ctx, opCreateTopUp, func(ctx context.Context, s Stores) error {
			acc, err := s.Accounts.GetByID(ctx, p.AccountID)
			if err != nil {
				if errors.Is(err, account.ErrAccountNotFound{}) {
					return fmt.Errorf("%w: %s", shared.ErrBuyerNotFound, p.AccountID)
				}
				return err
			}
			buyer = acc
			return s.TopUps.Create(ctx, candidate)
		})

		var duplicate topup.ErrDuplicateReference
		if errors.As(err, &duplicate) {
			e.logger.Warn("Top-up reference collision, regenerating", "reference", candidate.Reference, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return candidate, buyer, nil
	}

	return nil, nil, fmt.Errorf("failed to allocate a unique top-up reference after %d attempts", maxReferenceAttempts)
}

func (e *Engine) markTopUpFailed(ctx context.Context, reference string) {
	err := e.run(ctx, opCreateTopUp, func(ctx context.Context, s Stores) error {
		current, err := s.TopUps.LockByReference(ctx, reference)
		if err != nil {
			return err
		}
		current.MarkFailed(e.clock.Now())
		return s.TopUps.Update(ctx, current)
	})
	if err != nil {
		e.logger.Error("Failed to mark top-up as failed", "reference", reference, "error", err)
	}
}

// topUpKey identifies a top-up either by our reference or by the gateway's order code
type topUpKey struct {
	reference string
	orderCode int64
}

func byReference(reference string) topUpKey { return topUpKey{reference: reference} }

// keyForResult prefers the order code, which the gateway signs and never rewrites. The
// reference echoed through the payment description is only a fallback.
func keyForResult(result shared.GatewayResult) topUpKey {
	if result.OrderCode != 0 {
		return topUpKey{orderCode: result.OrderCode}
	}
	return byReference(result.Reference)
}

func (k topUpKey) String() string {
	if k.orderCode != 0 {
		return fmt.Sprintf("order code %d", k.orderCode)
	}
	return k.reference
}

func (k topUpKey) get(ctx context.Context, repo topup.Repository) (*topup.Transaction, error) {
	if k.orderCode != 0 {
		return repo.GetByOrderCode(ctx, k.orderCode)
	}
	return repo.GetByReference(ctx, k.reference)
}

func (k topUpKey) lock(ctx context.Context, repo topup.Repository) (*topup.Transaction, error) {
	if k.orderCode != 0 {
		return repo.LockByOrderCode(ctx, k.orderCode)
	}
	return repo.LockByReference(ctx, k.reference)
}

// confirmation carries what the gateway reported about a payment, when known
type confirmation struct {
	amount          int64
	transactionCode string
}

// ConfirmTopUp credits a PENDING, EXPIRED or FAILED top-up exactly once. Confirming a
// SUCCESS record returns it unchanged.
func (e *Engine) ConfirmTopUp(ctx context.Context, reference string) (*topup.Transaction, error) {
	started := e.clock.Now()
	tx, err := e.confirm(ctx, opConfirmTopUp, byReference(reference), nil)
	return tx, e.finish(opConfirmTopUp, started, err)
}

// HandleGatewayResult applies a verified gateway outcome. The record is found by the
// result's order code when present. Non-terminal statuses leave the record untouched; a paid
// result whose amount disagrees with the record is refused.
func (e *Engine) HandleGatewayResult(ctx context.Context, result shared.GatewayResult) (*topup.Transaction, error) {
	started := e.clock.Now()
	tx, err := e.applyGatewayResult(ctx, result)
	return tx, e.finish(opGatewayResult, started, err)
}

func (e *Engine) applyGatewayResult(ctx context.Context, result shared.GatewayResult) (*topup.Transaction, error) {
	key := keyForResult(result)
	logger := e.logger.With("reference", result.Reference, "order_code", result.OrderCode, "gateway_status", result.Status)
	if result.CorrelationID != "" {
		logger = logger.With("correlation_id", result.CorrelationID)
	}

	if !result.IsPaid() {
		logger.Info("Gateway reported a non-terminal status, nothing to settle")
		var tx *topup.Transaction
		err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
			found, err := key.get(ctx, s.TopUps)
			tx = found
			return err
		})
		if err != nil {
			return nil, notFoundAsTaxonomy(err, key)
		}
		return tx, nil
	}

	tx, err := e.confirm(ctx, opGatewayResult, key, &confirmation{
		amount:          result.Amount,
		transactionCode: result.TransactionCode,
	})
	if err != nil {
		logger.Warn("Gateway result not applied", "error", err)
		return nil, err
	}
	return tx, nil
}

func (e *Engine) confirm(ctx context.Context, operation string, key topUpKey, c *confirmation) (*topup.Transaction, error) {
	var confirmed *topup.Transaction
	credited := false

	err := e.run(ctx, operation, func(ctx context.Context, s Stores) error {
		confirmed, credited = nil, false

		tx, err := key.lock(ctx, s.TopUps)
		if err != nil {
			return err
		}
		if tx.IsSettled() {
			confirmed = tx
			return nil
		}

		code := ""
		if c != nil {
			if !tx.Amount.Equal(decimal.NewFromInt(c.amount)) {
				return fmt.Errorf("%w: gateway reported %d for %s but %s was requested",
					shared.ErrGateway, c.amount, tx.Reference, tx.Amount)
			}
			code = c.transactionCode
		}

		acc, err := s.Accounts.LockForUpdate(ctx, tx.AccountID)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound{}) {
				return fmt.Errorf("%w: %s", shared.ErrBuyerNotFound, tx.AccountID)
			}
			return err
		}

		now := e.clock.Now()
		before, err := acc.Credit(tx.Amount, now)
		if err != nil {
			return err
		}
		tx.MarkSucceeded(code, now)

		entry := ledger.NewSettledEntry(acc.ID, shared.EntryTypeTopUp, tx.Amount, before,
			fmt.Sprintf("Top-up %s", tx.Reference), now).WithTopUp(tx.ID)

		if err := s.TopUps.Update(ctx, tx); err != nil {
			return err
		}
		if err := s.Accounts.UpdateBalance(ctx, acc); err != nil {
			return err
		}
		if err := appendLedger(ctx, s, entry); err != nil {
			return err
		}

		confirmed, credited = tx, true
		return nil
	})
	if err != nil {
		return nil, notFoundAsTaxonomy(err, key)
	}

	if credited {
		e.logger.Info("Top-up settled",
			"reference", confirmed.Reference,
			"account_id", confirmed.AccountID.String(),
			"amount", confirmed.Amount.String(),
		)
	}
	return confirmed, nil
}

// CheckTopUp returns the caller's top-up, first asking the gateway about records that are
// still open. Records owned by someone else are reported as not found unless the caller is
// an administrator. A failed poll is not an error; the stored record is returned as is.
func (e *Engine) CheckTopUp(ctx context.Context, p shared.Principal, reference string) (*topup.Transaction, error) {
	started := e.clock.Now()

	var tx *topup.Transaction
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		found, err := s.TopUps.GetByReference(ctx, reference)
		tx = found
		return err
	})
	if err != nil {
		return nil, e.finish(opCheckTopUp, started, notFoundAsTaxonomy(err, byReference(reference)))
	}
	if !tx.OwnedBy(p.AccountID) && !p.IsAdmin {
		return nil, e.finish(opCheckTopUp, started, fmt.Errorf("%w: %s", shared.ErrTransactionNotFound, reference))
	}
	if tx.Status != shared.TopUpStatusPending && tx.Status != shared.TopUpStatusExpired {
		return tx, e.finish(opCheckTopUp, started, nil)
	}

	result, err := e.gateway.GetPaymentStatus(ctx, tx.OrderCode)
	if err != nil {
		e.logger.Warn("Failed to poll gateway status", "reference", reference, "error", err)
		return tx, e.finish(opCheckTopUp, started, nil)
	}
	if !result.IsPaid() {
		return tx, e.finish(opCheckTopUp, started, nil)
	}

	result.Reference = reference
	result.OrderCode = tx.OrderCode
	settled, err := e.applyGatewayResult(ctx, *result)
	return settled, e.finish(opCheckTopUp, started, err)
}

// ExpireStaleTopUps moves PENDING top-ups created more than olderThan ago to EXPIRED. A
// non-positive olderThan falls back to the configured expiry.
func (e *Engine) ExpireStaleTopUps(ctx context.Context, olderThan time.Duration) (int64, error) {
	started := e.clock.Now()
	if olderThan <= 0 {
		olderThan = e.cfg.TopUpExpiry
	}
	cutoff := started.Add(-olderThan)

	var expired int64
	err := e.run(ctx, opExpireTopUps, func(ctx context.Context, s Stores) error {
		n, err := s.TopUps.ExpirePending(ctx, cutoff)
		expired = n
		return err
	})
	if err != nil {
		return 0, e.finish(opExpireTopUps, started, err)
	}

	if expired > 0 {
		e.logger.Info("Expired stale top-ups", "count", expired, "cutoff", cutoff)
	}
	return expired, e.finish(opExpireTopUps, started, nil)
}

func notFoundAsTaxonomy(err error, key topUpKey) error {
	if errors.Is(err, topup.ErrTopUpNotFound{}) {
		return fmt.Errorf("%w: %s", shared.ErrTransactionNotFound, key)
	}
	return err
}
