package service

import (
	"context"

	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
)

// ProcessingService settles one verified gateway result
type ProcessingService interface {
	ProcessResult(ctx context.Context, result *shared.GatewayResult) error
}

// ResultApplier is the part of the settlement engine the worker drives
type ResultApplier interface {
	HandleGatewayResult(ctx context.Context, result shared.GatewayResult) (*topup.Transaction, error)
}

// CallbackRecorder observes consumed gateway results
type CallbackRecorder interface {
	ObserveCallback(err error)
}
