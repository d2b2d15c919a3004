package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

const itemColumns = `id, title, game, price::TEXT, status, buyer_id, images, ranks, version, created_at, updated_at, sold_at`

// ItemRepository implements the item.Repository interface for PostgreSQL
type ItemRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewItemRepository creates a new PostgreSQL item repository
func NewItemRepository(logger *slog.Logger, db *persistence.PostgresDB) *ItemRepository {
	return &ItemRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *ItemRepository) WithTx(tx pgx.Tx) item.Repository {
	return &ItemRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new listing. Images and ranks are written as text[].
func (r *ItemRepository) Create(ctx context.Context, it *item.Item) error {
	query := `
		INSERT INTO items (id, title, game, price, status, buyer_id, images, ranks, version, created_at, updated_at, sold_at)
		VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		it.ID,
		it.Title,
		it.Game,
		it.Price.String(),
		it.Status,
		it.BuyerID,
		it.Images,
		it.Ranks,
		it.Version,
		it.CreatedAt,
		it.UpdatedAt,
		it.SoldAt,
	)
	if err != nil {
		r.logger.Error("Failed to create item", "id", it.ID.String(), "error", err)
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// GetByID retrieves an item without locking
func (r *ItemRepository) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`

	it, err := scanItem(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to get item", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return it, nil
}

// LockForUpdate loads the item holding its row lock until the transaction ends.
// Concurrent purchases of the same item queue here.
func (r *ItemRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`

	it, err := scanItem(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrItemNotFound{ItemID: id}
		}
		r.logger.Error("Failed to lock item for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock item for update: %w", err)
	}

	return it, nil
}

// UpdateStatus persists a status transition guarded by the previous version
func (r *ItemRepository) UpdateStatus(ctx context.Context, it *item.Item) error {
	query := `
		UPDATE items
		SET status = $1, buyer_id = $2, sold_at = $3, version = $4, updated_at = $5
		WHERE id = $6 AND version = $7
	`

	result, err := r.querier.Exec(ctx, query,
		it.Status,
		it.BuyerID,
		it.SoldAt,
		it.Version,
		it.UpdatedAt,
		it.ID,
		it.Version-1,
	)
	if err != nil {
		r.logger.Error("Failed to update item status", "id", it.ID.String(), "status", it.Status, "error", err)
		return fmt.Errorf("failed to update item status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return item.ErrConcurrentModification{ItemID: it.ID}
	}

	return nil
}

func scanItem(row pgx.Row) (*item.Item, error) {
	var (
		it    item.Item
		price string
	)
	if err := row.Scan(
		&it.ID,
		&it.Title,
		&it.Game,
		&price,
		&it.Status,
		&it.BuyerID,
		&it.Images,
		&it.Ranks,
		&it.Version,
		&it.CreatedAt,
		&it.UpdatedAt,
		&it.SoldAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", price, err)
	}
	it.Price = parsed

	return &it, nil
}
