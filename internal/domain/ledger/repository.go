package ledger

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the authoritative, append-only ledger written inside settlement units of work
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Entry, error)
}

// ProjectionRepository manages the read-side copy of the ledger used for history queries
type ProjectionRepository interface {
	Upsert(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates entry id uniqueness violation
type ErrDuplicateEntry struct {
	EntryID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
