package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/outbox"
	"github.com/gamevault-settlement/internal/domain/shared"
)

// LedgerPublisher projects outbox messages into the ledger read store
type LedgerPublisher interface {
	PublishToLedger(ctx context.Context, message *outbox.Message) error
}

// LedgerPublisherImpl implements LedgerPublisher
type LedgerPublisherImpl struct {
	outboxRepo outbox.Repository
	projection ledger.ProjectionRepository
	logger     *slog.Logger
}

// NewLedgerPublisher creates a new publisher
func NewLedgerPublisher(
	outboxRepo outbox.Repository,
	projection ledger.ProjectionRepository,
	logger *slog.Logger,
) LedgerPublisher {
	return &LedgerPublisherImpl{
		outboxRepo: outboxRepo,
		projection: projection,
		logger:     logger,
	}
}

// PublishToLedger upserts the carried entry by id and marks the message PROCESSED. A crash
// between the two steps replays the upsert, which leaves the projection unchanged.
func (p *LedgerPublisherImpl) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	entry, err := message.GetLedgerEntry()
	if err != nil {
		p.logger.Error("Failed to unmarshal ledger entry from outbox payload",
			"outbox_id", message.ID, "entry_id", message.EntryID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger.With("outbox_id", message.ID, "entry_id", entry.ID.String())

	if err := p.projection.Upsert(ctx, entry); err != nil {
		logger.Error("Failed to upsert ledger entry into projection", "error", err)
		return fmt.Errorf("failed to project ledger entry %s: %w", entry.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED", "error", err)
		return fmt.Errorf("ledger write for %s OK, but failed to mark outbox %d as PROCESSED: %w", entry.ID, message.ID, err)
	}

	logger.Debug("Outbox message projected and marked as PROCESSED", "account_id", entry.AccountID.String(), "type", entry.Type)
	return nil
}
