package item

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines item persistence operations
type Repository interface {
	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uuid.UUID) (*Item, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Item, error)

	// UpdateStatus persists Status, BuyerID, SoldAt, Version and UpdatedAt guarded by the loaded version
	UpdateStatus(ctx context.Context, item *Item) error
}

// ErrItemNotFound indicates missing item
type ErrItemNotFound struct {
	ItemID uuid.UUID
}

func (e ErrItemNotFound) Error() string {
	return "item not found: " + e.ItemID.String()
}

// Is matches any ErrItemNotFound when the target carries no id
func (e ErrItemNotFound) Is(target error) bool {
	t, ok := target.(ErrItemNotFound)
	if !ok {
		return false
	}
	if t.ItemID == uuid.Nil {
		return true
	}
	return e.ItemID == t.ItemID
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	ItemID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for item: " + e.ItemID.String()
}
