// Package sweeper expires top-ups the gateway never settled
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/gamevault-settlement/internal/config"
)

// Expirer is the part of the settlement engine the sweeper drives
type Expirer interface {
	ExpireStaleTopUps(ctx context.Context, olderThan time.Duration) (int64, error)
}

// ExpiryRecorder observes sweep results
type ExpiryRecorder interface {
	ObserveExpired(n int64)
}

// ExpirySweeper periodically moves stale PENDING top-ups to EXPIRED
type ExpirySweeper struct {
	engine   Expirer
	recorder ExpiryRecorder
	logger   *slog.Logger
	interval time.Duration
	expiry   time.Duration
}

// NewExpirySweeper creates a sweeper. recorder may be nil.
func NewExpirySweeper(cfg *config.SettlementConfig, engine Expirer, recorder ExpiryRecorder, logger *slog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		engine:   engine,
		recorder: recorder,
		logger:   logger,
		interval: cfg.SweepInterval,
		expiry:   cfg.TopUpExpiry,
	}
}

// Start sweeps on every interval until ctx is canceled
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.logger.Info("Starting top-up expiry sweeper", "interval", s.interval.String(), "expiry", s.expiry.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Top-up expiry sweeper stopping due to context cancellation")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) int64 {
	n, err := s.engine.ExpireStaleTopUps(ctx, s.expiry)
	if err != nil {
		s.logger.Error("Failed to expire stale top-ups", "error", err)
		return 0
	}
	if s.recorder != nil {
		s.recorder.ObserveExpired(n)
	}
	return n
}
