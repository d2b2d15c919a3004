package settlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/outbox"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/platform/gateway"
)

// Stores is the set of repositories bound to one unit of work
type Stores struct {
	Accounts account.Repository
	Items    item.Repository
	Orders   order.Repository
	Ledger   ledger.Repository
	TopUps   topup.Repository
	Outbox   outbox.Repository
}

// UnitOfWork runs fn atomically. Every write made through the Stores handed to fn commits
// together when fn returns nil and is discarded otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// PaymentGateway is the outbound side of the payment provider
type PaymentGateway interface {
	CreatePaymentLink(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutLink, error)
	GetPaymentStatus(ctx context.Context, orderCode int64) (*shared.GatewayResult, error)
}

// ItemCache is notified after an item's status changed in a committed unit of work
type ItemCache interface {
	Invalidate(ctx context.Context, itemID uuid.UUID) error
}

// Recorder observes settlement outcomes
type Recorder interface {
	ObserveOperation(operation string, err error, elapsed time.Duration)
	ObserveRetry(operation string)
}

// Clock abstracts time for deterministic tests
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, error, time.Duration) {}
func (noopRecorder) ObserveRetry(string)                           {}

type noopCache struct{}

func (noopCache) Invalidate(context.Context, uuid.UUID) error { return nil }
