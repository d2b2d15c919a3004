package shared

import "github.com/google/uuid"

// Principal is the authenticated caller of a settlement operation. It is built by the
// transport layer from a verified credential and passed explicitly; the engine never reads
// identity from a session.
type Principal struct {
	AccountID uuid.UUID
	IsAdmin   bool
}

// IsZero reports whether no caller was authenticated
func (p Principal) IsZero() bool {
	return p.AccountID == uuid.Nil
}
