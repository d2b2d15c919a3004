package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

const orderColumns = `id, buyer_id, item_id, total_amount::TEXT, status, payment_method, created_at, updated_at`

// OrderRepository implements the order.Repository interface for PostgreSQL
type OrderRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewOrderRepository creates a new PostgreSQL order repository
func NewOrderRepository(logger *slog.Logger, db *persistence.PostgresDB) *OrderRepository {
	return &OrderRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *OrderRepository) WithTx(tx pgx.Tx) order.Repository {
	return &OrderRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new order
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	query := `
		INSERT INTO orders (id, buyer_id, item_id, total_amount, status, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		o.ID,
		o.BuyerID,
		o.ItemID,
		o.TotalAmount.String(),
		o.Status,
		o.PaymentMethod,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create order", "id", o.ID.String(), "item_id", o.ItemID.String(), "error", err)
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// GetByID retrieves an order
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id, "get order")
}

// LockForUpdate retrieves an order and locks its row
func (r *OrderRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id, "lock order for update")
}

func (r *OrderRepository) get(ctx context.Context, query string, id uuid.UUID, op string) (*order.Order, error) {
	var (
		o     order.Order
		total string
	)
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.BuyerID,
		&o.ItemID,
		&total,
		&o.Status,
		&o.PaymentMethod,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound{OrderID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid order total %q: %w", total, err)
	}

	return &o, nil
}

// UpdateStatus sets the order status
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.OrderStatus) error {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`

	result, err := r.querier.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update order status", "id", id.String(), "status", status, "error", err)
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return order.ErrOrderNotFound{OrderID: id}
	}

	return nil
}
