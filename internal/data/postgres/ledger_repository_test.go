package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

func TestLedgerRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	orderID := uuid.New()
	entry := ledger.NewSettledEntry(uuid.New(), shared.EntryTypePurchase, decimal.NewFromInt(-500_000),
		decimal.NewFromInt(2_000_000), "Purchase of item Diamond account", time.Now().UTC()).WithOrder(orderID)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO ledger_entries`).
			WithArgs(entry.ID, entry.AccountID, shared.EntryTypePurchase, "-500000", "2000000", "1500000",
				shared.EntryStatusSuccess, entry.OrderID, entry.TopUpID, entry.Description, entry.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, entry))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO ledger_entries`).
			WithArgs(entry.ID, entry.AccountID, shared.EntryTypePurchase, "-500000", "2000000", "1500000",
				shared.EntryStatusSuccess, entry.OrderID, entry.TopUpID, entry.Description, entry.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: persistence.CodeUniqueViolation})

		err := repo.Create(ctx, entry)
		assert.True(t, errors.Is(err, ledger.ErrDuplicateEntry{EntryID: entry.ID}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbalanced entry never reaches the database", func(t *testing.T) {
		bad := *entry
		bad.BalanceAfter = decimal.NewFromInt(1)

		assert.ErrorIs(t, repo.Create(ctx, &bad), ledger.ErrUnbalancedEntry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerRepository_GetByOrderID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerRepository{querier: mock, logger: newTestLogger()}
	orderID := uuid.New()
	accountID := uuid.New()
	now := time.Now().UTC()

	columns := []string{"id", "account_id", "type", "amount", "balance_before", "balance_after", "status", "order_id", "topup_id", "description", "created_at"}

	t.Run("purchase then refund", func(t *testing.T) {
		rows := pgxmock.NewRows(columns).
			AddRow(uuid.New(), accountID, shared.EntryTypePurchase, "-500000", "2000000", "1500000", shared.EntryStatusSuccess, &orderID, nil, "Purchase of item X", now).
			AddRow(uuid.New(), accountID, shared.EntryTypeRefund, "500000", "1500000", "2000000", shared.EntryStatusSuccess, &orderID, nil, "Refund of order", now.Add(time.Minute))
		mock.ExpectQuery(`FROM ledger_entries WHERE order_id = \$1 ORDER BY created_at ASC`).
			WithArgs(orderID).
			WillReturnRows(rows)

		entries, err := repo.GetByOrderID(ctx, orderID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, shared.EntryTypePurchase, entries[0].Type)
		assert.Equal(t, shared.EntryTypeRefund, entries[1].Type)
		assert.True(t, entries[0].Amount.Add(entries[1].Amount).IsZero())
		assert.Nil(t, entries[0].TopUpID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(`FROM ledger_entries`).
			WithArgs(orderID).
			WillReturnError(errors.New("db down"))

		_, err := repo.GetByOrderID(ctx, orderID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get ledger entries by order")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
