package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyUsername   = errors.New("username cannot be empty")
	ErrNegativeBalance = errors.New("initial balance cannot be negative")
)

// Account represents a wallet holder. Balance is never negative.
type Account struct {
	ID        uuid.UUID       `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	IsAdmin   bool            `json:"is_admin"`
	Version   int             `json:"version"` // For optimistic locking
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewAccount creates a new account with the given parameters
func NewAccount(username, email string, initialBalance decimal.Decimal, isAdmin bool) (*Account, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if initialBalance.IsNegative() {
		return nil, ErrNegativeBalance
	}

	now := time.Now().UTC()
	return &Account{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Balance:   initialBalance,
		IsAdmin:   isAdmin,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Credit adds amount to the balance and returns the balance before the change.
func (a *Account) Credit(amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, shared.ErrInvalidAmount
	}

	before := a.Balance
	a.Balance = a.Balance.Add(amount)
	a.touch(at)
	return before, nil
}

// Debit subtracts amount from the balance and returns the balance before the change.
// It fails with shared.ErrInsufficientBalance rather than letting the balance go negative.
func (a *Account) Debit(amount decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, shared.ErrInvalidAmount
	}
	if !a.CanAfford(amount) {
		return decimal.Zero, shared.ErrInsufficientBalance
	}

	before := a.Balance
	a.Balance = a.Balance.Sub(amount)
	a.touch(at)
	return before, nil
}

// CanAfford checks if the balance covers amount
func (a *Account) CanAfford(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

func (a *Account) touch(at time.Time) {
	a.UpdatedAt = at
	a.Version++
}
