package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// UpdateBalance persists Balance, Version and UpdatedAt. The write is guarded by the
	// version the account had when it was loaded (account.Version-1).
	UpdateBalance(ctx context.Context, account *Account) error

	// LockForUpdate loads the account and holds an exclusive row lock until the unit of work ends
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries no id
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}
