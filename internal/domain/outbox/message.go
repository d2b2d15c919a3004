package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/shared"
)

// Message carries a settled ledger entry from the settlement transaction to the read projection
type Message struct {
	ID            int64               `json:"id"`
	EntryID       uuid.UUID           `json:"entry_id"`
	AccountID     uuid.UUID           `json:"account_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a settled entry; the message shares the entry's creation time
func NewMessage(entry *ledger.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		EntryID:   entry.ID,
		AccountID: entry.AccountID,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// RecordAttempt counts a failed publish made at the given time
func (m *Message) RecordAttempt(at time.Time) {
	m.Attempts++
	m.LastAttemptAt = &at
}

// Resolve moves the message out of PENDING
func (m *Message) Resolve(status shared.OutboxStatus, at time.Time) {
	m.Status = status
	m.LastAttemptAt = &at
}

// ExhaustsRetries reports whether one more failed attempt reaches maxAttempts
func (m *Message) ExhaustsRetries(maxAttempts int) bool {
	return m.Attempts+1 >= maxAttempts
}

// GetLedgerEntry extracts the ledger entry from the payload
func (m *Message) GetLedgerEntry() (*ledger.Entry, error) {
	var entry ledger.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
