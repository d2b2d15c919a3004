// Package postgres provides PostgreSQL implementations of the domain repositories.
// Money columns are NUMERIC and travel as text in both directions so no precision is lost.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

const accountColumns = `id, username, email, balance::TEXT, is_admin, version, created_at, updated_at`

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) *AccountRepository {
	return &AccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, username, email, balance, is_admin, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4::NUMERIC, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Username,
		acc.Email,
		acc.Balance.String(),
		acc.IsAdmin,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its ID without locking
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to get account", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return acc, nil
}

// UpdateBalance writes the new balance guarded by the previous version
func (r *AccountRepository) UpdateBalance(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1::NUMERIC, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5
	`

	result, err := r.querier.Exec(ctx, query,
		acc.Balance.String(),
		acc.Version,
		acc.UpdatedAt,
		acc.ID,
		acc.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update account balance", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to update account balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrConcurrentModification{AccountID: acc.ID}
	}

	return nil
}

// LockForUpdate obtains a pessimistic lock on the account and returns its current state.
// Must be called inside a transaction.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	acc, err := scanAccount(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to lock account for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock account for update: %w", err)
	}

	return acc, nil
}

func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		acc     account.Account
		balance string
	)
	if err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&balance,
		&acc.IsAdmin,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", balance, err)
	}
	acc.Balance = parsed

	return &acc, nil
}
