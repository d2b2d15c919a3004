package topup

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// ReferencePrefix marks references minted by this service
const ReferencePrefix = "TOPUP"

// Transaction is a wallet deposit initiated through the payment gateway
type Transaction struct {
	ID                     uuid.UUID          `json:"id"`
	AccountID              uuid.UUID          `json:"account_id"`
	Amount                 decimal.Decimal    `json:"amount"`
	Reference              string             `json:"reference"`
	OrderCode              int64              `json:"order_code"`
	Status                 shared.TopUpStatus `json:"status"`
	GatewayTransactionCode string             `json:"gateway_transaction_code,omitempty"`
	CheckoutURL            string             `json:"checkout_url,omitempty"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
	CompletedAt            *time.Time         `json:"completed_at,omitempty"`
}

// NewPending creates a PENDING top-up with a freshly minted reference and order code.
// Uniqueness is enforced by the store; callers regenerate on a duplicate.
func NewPending(accountID uuid.UUID, amount decimal.Decimal, at time.Time, entropy io.Reader) (*Transaction, error) {
	if entropy == nil {
		entropy = rand.Reader
	}

	var buf [5]byte
	if _, err := io.ReadFull(entropy, buf[:]); err != nil {
		return nil, fmt.Errorf("failed to read entropy: %w", err)
	}

	return &Transaction{
		ID:        uuid.New(),
		AccountID: accountID,
		Amount:    amount,
		Reference: NewReference(accountID, at, buf[:3]),
		OrderCode: NewOrderCode(at, binary.BigEndian.Uint16(buf[3:])),
		Status:    shared.TopUpStatusPending,
		CreatedAt: at,
		UpdatedAt: at,
	}, nil
}

// NewReference builds TOPUP<8 hex of account><unix millis><hex suffix>
func NewReference(accountID uuid.UUID, at time.Time, suffix []byte) string {
	account := strings.ReplaceAll(accountID.String(), "-", "")[:8]
	return fmt.Sprintf("%s%s%d%s", ReferencePrefix, strings.ToUpper(account), at.UnixMilli(), strings.ToUpper(hex.EncodeToString(suffix)))
}

// NewOrderCode derives the gateway's integer order code from the creation time and a random
// component in [0, 999]. The result stays below 2^53 for any realistic clock.
func NewOrderCode(at time.Time, random uint16) int64 {
	return at.UnixMilli()*1000 + int64(random%1000)
}

// IsSettled reports whether the top-up has already been credited
func (t *Transaction) IsSettled() bool {
	return t.Status == shared.TopUpStatusSuccess
}

// MarkSucceeded records the credit. Any non-SUCCESS state may be confirmed, including a late
// payment on an EXPIRED record.
func (t *Transaction) MarkSucceeded(gatewayCode string, at time.Time) {
	completed := at
	t.Status = shared.TopUpStatusSuccess
	if gatewayCode != "" {
		t.GatewayTransactionCode = gatewayCode
	}
	t.CompletedAt = &completed
	t.UpdatedAt = at
}

// MarkFailed records a gateway rejection
func (t *Transaction) MarkFailed(at time.Time) {
	if t.IsSettled() {
		return
	}
	t.Status = shared.TopUpStatusFailed
	t.UpdatedAt = at
}

// OwnedBy reports whether the account initiated this top-up
func (t *Transaction) OwnedBy(accountID uuid.UUID) bool {
	return t.AccountID == accountID
}
