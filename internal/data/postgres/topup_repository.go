package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

const topUpColumns = `id, account_id, amount::TEXT, reference, order_code, status, gateway_transaction_code, checkout_url, created_at, updated_at, completed_at`

// TopUpRepository implements the topup.Repository interface for PostgreSQL
type TopUpRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTopUpRepository creates a new PostgreSQL top-up repository
func NewTopUpRepository(logger *slog.Logger, db *persistence.PostgresDB) *TopUpRepository {
	return &TopUpRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TopUpRepository) WithTx(tx pgx.Tx) topup.Repository {
	return &TopUpRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new top-up. The unique constraints on reference and order_code are the
// authoritative guard against duplicates.
func (r *TopUpRepository) Create(ctx context.Context, t *topup.Transaction) error {
	query := `
		INSERT INTO topup_transactions (id, account_id, amount, reference, order_code, status, gateway_transaction_code, checkout_url, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3::NUMERIC, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.AccountID,
		t.Amount.String(),
		t.Reference,
		t.OrderCode,
		t.Status,
		t.GatewayTransactionCode,
		t.CheckoutURL,
		t.CreatedAt,
		t.UpdatedAt,
		t.CompletedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, "") {
			return topup.ErrDuplicateReference{Reference: t.Reference}
		}
		r.logger.Error("Failed to create top-up", "reference", t.Reference, "error", err)
		return fmt.Errorf("failed to create top-up: %w", err)
	}

	return nil
}

// GetByReference retrieves a top-up without locking
func (r *TopUpRepository) GetByReference(ctx context.Context, reference string) (*topup.Transaction, error) {
	return r.get(ctx, `SELECT `+topUpColumns+` FROM topup_transactions WHERE reference = $1`,
		reference, topup.ErrTopUpNotFound{Reference: reference}, "get top-up")
}

// LockByReference retrieves a top-up and locks its row. Duplicate callbacks for the same
// reference serialize here.
func (r *TopUpRepository) LockByReference(ctx context.Context, reference string) (*topup.Transaction, error) {
	return r.get(ctx, `SELECT `+topUpColumns+` FROM topup_transactions WHERE reference = $1 FOR UPDATE`,
		reference, topup.ErrTopUpNotFound{Reference: reference}, "lock top-up")
}

// GetByOrderCode retrieves a top-up by the gateway order code without locking
func (r *TopUpRepository) GetByOrderCode(ctx context.Context, orderCode int64) (*topup.Transaction, error) {
	return r.get(ctx, `SELECT `+topUpColumns+` FROM topup_transactions WHERE order_code = $1`,
		orderCode, topup.ErrTopUpNotFound{OrderCode: orderCode}, "get top-up by order code")
}

// LockByOrderCode retrieves a top-up by the gateway order code and locks its row
func (r *TopUpRepository) LockByOrderCode(ctx context.Context, orderCode int64) (*topup.Transaction, error) {
	return r.get(ctx, `SELECT `+topUpColumns+` FROM topup_transactions WHERE order_code = $1 FOR UPDATE`,
		orderCode, topup.ErrTopUpNotFound{OrderCode: orderCode}, "lock top-up by order code")
}

func (r *TopUpRepository) get(ctx context.Context, query string, key any, notFound topup.ErrTopUpNotFound, op string) (*topup.Transaction, error) {
	var (
		t      topup.Transaction
		amount string
	)
	err := r.querier.QueryRow(ctx, query, key).Scan(
		&t.ID,
		&t.AccountID,
		&amount,
		&t.Reference,
		&t.OrderCode,
		&t.Status,
		&t.GatewayTransactionCode,
		&t.CheckoutURL,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		r.logger.Error("Failed to "+op, "key", key, "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid top-up amount %q: %w", amount, err)
	}

	return &t, nil
}

// Update persists the mutable fields of a top-up
func (r *TopUpRepository) Update(ctx context.Context, t *topup.Transaction) error {
	query := `
		UPDATE topup_transactions
		SET status = $1, gateway_transaction_code = $2, checkout_url = $3, updated_at = $4, completed_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		t.Status,
		t.GatewayTransactionCode,
		t.CheckoutURL,
		t.UpdatedAt,
		t.CompletedAt,
		t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update top-up", "reference", t.Reference, "status", t.Status, "error", err)
		return fmt.Errorf("failed to update top-up: %w", err)
	}

	if result.RowsAffected() == 0 {
		return topup.ErrTopUpNotFound{Reference: t.Reference}
	}

	return nil
}

// ExpirePending moves stale PENDING top-ups to EXPIRED
func (r *TopUpRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE topup_transactions
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND created_at < $3
	`

	result, err := r.querier.Exec(ctx, query, shared.TopUpStatusExpired, shared.TopUpStatusPending, cutoff)
	if err != nil {
		r.logger.Error("Failed to expire pending top-ups", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to expire pending top-ups: %w", err)
	}

	return result.RowsAffected(), nil
}
