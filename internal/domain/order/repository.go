package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/gamevault-settlement/internal/domain/shared"
)

// Repository defines order persistence operations
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.OrderStatus) error
}

// ErrOrderNotFound indicates missing order
type ErrOrderNotFound struct {
	OrderID uuid.UUID
}

func (e ErrOrderNotFound) Error() string {
	return "order not found: " + e.OrderID.String()
}

// Is matches any ErrOrderNotFound when the target carries no id
func (e ErrOrderNotFound) Is(target error) bool {
	t, ok := target.(ErrOrderNotFound)
	if !ok {
		return false
	}
	if t.OrderID == uuid.Nil {
		return true
	}
	return e.OrderID == t.OrderID
}
