package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/settlement"
)

// SettlementService is the part of the settlement engine exposed over HTTP
type SettlementService interface {
	Purchase(ctx context.Context, p shared.Principal, itemID uuid.UUID) (*order.Order, error)
	CreateTopUp(ctx context.Context, p shared.Principal, amount decimal.Decimal) (*settlement.TopUpCheckout, error)
	CheckTopUp(ctx context.Context, p shared.Principal, reference string) (*topup.Transaction, error)
	RefundOrder(ctx context.Context, p shared.Principal, orderID uuid.UUID, reason string) (*order.Order, error)
	AdjustBalance(ctx context.Context, p shared.Principal, accountID uuid.UUID, amount decimal.Decimal, reason string) (*ledger.Entry, error)
}

// ItemReader serves item detail, from the cache when one is configured
type ItemReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error)
}

// AccountService serves the caller's own wallet views
type AccountService interface {
	// GetAccountByID returns account.ErrAccountNotFound if the account doesn't exist
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// GetLedger returns one page of the account's ledger history, newest first, and the total count
	GetLedger(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error)
}

// CallbackService authenticates gateway webhooks and hands them to the settlement worker
type CallbackService interface {
	// Accept returns shared.ErrInvalidSignature for unauthenticated bodies
	Accept(ctx context.Context, body []byte, correlationID string) (*shared.GatewayResult, error)
}

// CallbackVerifier checks a webhook body's signature
type CallbackVerifier interface {
	VerifyCallback(body []byte) (*shared.GatewayResult, error)
}

// Compile-time check that the engine satisfies the HTTP surface
var _ SettlementService = (*settlement.Engine)(nil)
