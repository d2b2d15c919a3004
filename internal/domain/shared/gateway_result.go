package shared

import (
	"strings"
	"time"
)

// GatewayResult is a verified payment outcome reported by the gateway, either through a
// callback or a status poll. It is the Kafka message exchanged between the API and the worker.
type GatewayResult struct {
	Reference       string    `json:"reference"`
	OrderCode       int64     `json:"order_code"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	TransactionCode string    `json:"transaction_code,omitempty"`
	CorrelationID   string    `json:"correlation_id,omitempty"`
	ReceivedAt      time.Time `json:"received_at"`
}

// IsPaid reports whether the provider status is terminal-successful. Anything else is non-terminal.
func (r GatewayResult) IsPaid() bool {
	switch strings.ToUpper(strings.TrimSpace(r.Status)) {
	case "PAID", "SUCCESS":
		return true
	default:
		return false
	}
}
