package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/shared"
)

var ErrUnbalancedEntry = errors.New("ledger entry balance_after must equal balance_before + amount")

// Entry is an append-only record of a single balance-affecting event
type Entry struct {
	ID            uuid.UUID          `json:"id"`
	AccountID     uuid.UUID          `json:"account_id"`
	Type          shared.EntryType   `json:"type"`
	Amount        decimal.Decimal    `json:"amount"` // Signed: negative for debits
	BalanceBefore decimal.Decimal    `json:"balance_before"`
	BalanceAfter  decimal.Decimal    `json:"balance_after"`
	Status        shared.EntryStatus `json:"status"`
	OrderID       *uuid.UUID         `json:"order_id,omitempty"`
	TopUpID       *uuid.UUID         `json:"topup_id,omitempty"`
	Description   string             `json:"description"`
	CreatedAt     time.Time          `json:"created_at"`
}

// NewSettledEntry builds a SUCCESS entry whose BalanceAfter is derived from before and amount
func NewSettledEntry(accountID uuid.UUID, entryType shared.EntryType, amount, before decimal.Decimal, description string, at time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AccountID:     accountID,
		Type:          entryType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  before.Add(amount),
		Status:        shared.EntryStatusSuccess,
		Description:   description,
		CreatedAt:     at,
	}
}

// WithOrder links the entry to an order
func (e *Entry) WithOrder(orderID uuid.UUID) *Entry {
	id := orderID
	e.OrderID = &id
	return e
}

// WithTopUp links the entry to a top-up transaction
func (e *Entry) WithTopUp(topUpID uuid.UUID) *Entry {
	id := topUpID
	e.TopUpID = &id
	return e
}

// Validate checks the entry arithmetic
func (e *Entry) Validate() error {
	if !e.BalanceBefore.Add(e.Amount).Equal(e.BalanceAfter) {
		return ErrUnbalancedEntry
	}
	return nil
}
