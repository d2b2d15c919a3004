package topup

import (
	"context"
	"strconv"
	"time"
)

// Repository defines top-up persistence operations
type Repository interface {
	// Create fails with ErrDuplicateReference when the reference or order code is taken
	Create(ctx context.Context, tx *Transaction) error
	GetByReference(ctx context.Context, reference string) (*Transaction, error)
	LockByReference(ctx context.Context, reference string) (*Transaction, error)

	// GetByOrderCode and LockByOrderCode look a record up by the gateway's order code
	GetByOrderCode(ctx context.Context, orderCode int64) (*Transaction, error)
	LockByOrderCode(ctx context.Context, orderCode int64) (*Transaction, error)
	Update(ctx context.Context, tx *Transaction) error

	// ExpirePending moves PENDING records created before cutoff to EXPIRED and returns how many moved
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// ErrTopUpNotFound indicates missing top-up. Exactly one of Reference and OrderCode is set,
// depending on how the record was looked up.
type ErrTopUpNotFound struct {
	Reference string
	OrderCode int64
}

func (e ErrTopUpNotFound) Error() string {
	if e.Reference == "" && e.OrderCode != 0 {
		return "top-up not found: order code " + strconv.FormatInt(e.OrderCode, 10)
	}
	return "top-up not found: " + e.Reference
}

// Is matches any ErrTopUpNotFound when the target carries neither key
func (e ErrTopUpNotFound) Is(target error) bool {
	t, ok := target.(ErrTopUpNotFound)
	if !ok {
		return false
	}
	if t.Reference == "" && t.OrderCode == 0 {
		return true
	}
	return e.Reference == t.Reference && e.OrderCode == t.OrderCode
}

// ErrDuplicateReference indicates a reference or order code collision
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "top-up reference already exists: " + e.Reference
}
