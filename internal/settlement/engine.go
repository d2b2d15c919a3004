// Package settlement implements the balance settlement core of the storefront: purchases
// paid from the wallet, gateway top-ups and the administrative corrections on top of them.
// Every balance change runs in one unit of work together with its ledger entry and outbox
// message.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/outbox"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/persistence"
)

// Engine executes settlement operations
type Engine struct {
	uow      UnitOfWork
	gateway  PaymentGateway
	cfg      config.SettlementConfig
	logger   *slog.Logger
	clock    Clock
	recorder Recorder
	cache    ItemCache
	entropy  io.Reader
}

// Option customizes an Engine
type Option func(*Engine)

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithItemCache attaches the item cache invalidated after purchases and refunds
func WithItemCache(c ItemCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithEntropy replaces the randomness used for top-up references
func WithEntropy(r io.Reader) Option {
	return func(e *Engine) { e.entropy = r }
}

// NewEngine creates a settlement engine
func NewEngine(uow UnitOfWork, gw PaymentGateway, cfg config.SettlementConfig, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		uow:      uow,
		gateway:  gw,
		cfg:      cfg,
		logger:   logger,
		clock:    systemClock{},
		recorder: noopRecorder{},
		cache:    noopCache{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.MaxRetries <= 0 {
		e.cfg.MaxRetries = 1
	}
	return e
}

// run executes fn in a unit of work, retrying on lock contention with a linear backoff.
// Business failures are returned on the first attempt.
func (e *Engine) run(ctx context.Context, operation string, fn func(ctx context.Context, s Stores) error) error {
	var err error
	for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
		err = e.uow.Do(ctx, fn)
		if err == nil || !isContention(err) {
			return err
		}

		e.recorder.ObserveRetry(operation)
		e.logger.Warn("Settlement contention, retrying",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.MaxRetries,
			"error", err,
		)

		if attempt == e.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s cancelled while waiting to retry: %v", shared.ErrContention, operation, ctx.Err())
		case <-time.After(e.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("%w: %s gave up after %d attempts: %v", shared.ErrContention, operation, e.cfg.MaxRetries, err)
}

// finish classifies err for the caller and records the outcome. Errors outside the
// settlement taxonomy are logged in full and surfaced as ErrInternal.
func (e *Engine) finish(operation string, started time.Time, err error) error {
	if err != nil && shared.ErrorCode(err) == "INTERNAL_FAILURE" && !errors.Is(err, shared.ErrInternal) {
		e.logger.Error("Settlement operation failed", "operation", operation, "error", err)
		err = fmt.Errorf("%w: %s: %w", shared.ErrInternal, operation, err)
	}
	e.recorder.ObserveOperation(operation, err, e.clock.Now().Sub(started))
	return err
}

// appendLedger validates and writes entry together with its outbox message
func appendLedger(ctx context.Context, s Stores, entry *ledger.Entry) error {
	if err := s.Ledger.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	msg, err := outbox.NewMessage(entry)
	if err != nil {
		return fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := s.Outbox.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

func isContention(err error) bool {
	if errors.Is(err, shared.ErrContention) || persistence.IsContention(err) {
		return true
	}
	var accountConflict account.ErrConcurrentModification
	var itemConflict item.ErrConcurrentModification
	return errors.As(err, &accountConflict) || errors.As(err, &itemConflict)
}
