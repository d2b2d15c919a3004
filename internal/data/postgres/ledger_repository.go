package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

// LedgerRepository implements the authoritative ledger.Repository for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) *LedgerRepository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends an entry. Entries are never updated afterwards except for their status.
func (r *LedgerRepository) Create(ctx context.Context, e *ledger.Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO ledger_entries (id, account_id, type, amount, balance_before, balance_after, status, order_id, topup_id, description, created_at)
		VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.AccountID,
		e.Type,
		e.Amount.String(),
		e.BalanceBefore.String(),
		e.BalanceAfter.String(),
		e.Status,
		e.OrderID,
		e.TopUpID,
		e.Description,
		e.CreatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, "") {
			return ledger.ErrDuplicateEntry{EntryID: e.ID}
		}
		r.logger.Error("Failed to create ledger entry", "id", e.ID.String(), "type", e.Type, "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByOrderID returns the entries linked to an order, oldest first
func (r *LedgerRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, type, amount::TEXT, balance_before::TEXT, balance_after::TEXT, status, order_id, topup_id, description, created_at
		FROM ledger_entries
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error("Failed to get ledger entries by order", "order_id", orderID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries by order: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		var (
			e                     ledger.Entry
			amount, before, after string
		)
		if err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.Type,
			&amount,
			&before,
			&after,
			&e.Status,
			&e.OrderID,
			&e.TopUpID,
			&e.Description,
			&e.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}

		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid ledger amount %q: %w", amount, err)
		}
		if e.BalanceBefore, err = decimal.NewFromString(before); err != nil {
			return nil, fmt.Errorf("invalid ledger balance_before %q: %w", before, err)
		}
		if e.BalanceAfter, err = decimal.NewFromString(after); err != nil {
			return nil, fmt.Errorf("invalid ledger balance_after %q: %w", after, err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}
