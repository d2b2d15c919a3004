package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/ledger"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	ledgerRepo  ledger.ProjectionRepository
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo account.Repository, ledgerRepo ledger.ProjectionRepository) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// GetAccountByID retrieves an account by its ID, returns ErrAccountNotFound if not found
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

// GetLedger reads from the projection, which trails the authoritative ledger by at most one
// outbox polling interval
func (s *AccountServiceImpl) GetLedger(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByAccountID(ctx, accountID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get ledger page: %w", err)
	}

	total, err := s.ledgerRepo.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return entries, total, nil
}
