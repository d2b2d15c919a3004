package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/gamevault-settlement/internal/platform/persistence"
	"github.com/gamevault-settlement/internal/settlement"
)

// UnitOfWork runs settlement units in a single PostgreSQL transaction
type UnitOfWork struct {
	db       *persistence.PostgresDB
	accounts *AccountRepository
	items    *ItemRepository
	orders   *OrderRepository
	ledger   *LedgerRepository
	topUps   *TopUpRepository
	outbox   *OutboxRepository
}

// NewUnitOfWork creates a unit of work over db
func NewUnitOfWork(logger *slog.Logger, db *persistence.PostgresDB) *UnitOfWork {
	return &UnitOfWork{
		db:       db,
		accounts: NewAccountRepository(logger, db),
		items:    NewItemRepository(logger, db),
		orders:   NewOrderRepository(logger, db),
		ledger:   NewLedgerRepository(logger, db),
		topUps:   NewTopUpRepository(logger, db),
		outbox:   NewOutboxRepository(logger, db),
	}
}

// Do binds every repository to one transaction and commits when fn succeeds
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s settlement.Stores) error) error {
	return u.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, settlement.Stores{
			Accounts: u.accounts.WithTx(tx),
			Items:    u.items.WithTx(tx),
			Orders:   u.orders.WithTx(tx),
			Ledger:   u.ledger.WithTx(tx),
			TopUps:   u.topUps.WithTx(tx),
			Outbox:   u.outbox.WithTx(tx),
		})
	})
}
