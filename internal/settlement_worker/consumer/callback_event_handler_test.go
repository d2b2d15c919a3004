package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gamevault-settlement/internal/domain/shared"
)

// MockProcessingService for testing
type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) ProcessResult(ctx context.Context, result *shared.GatewayResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestHandleMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	result := shared.GatewayResult{
		Reference:       "TOPUP-ABC",
		OrderCode:       123456,
		Amount:          50000,
		Status:          "PAID",
		TransactionCode: "FT123",
		CorrelationID:   "corr1",
		ReceivedAt:      time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	validJSON, err := json.Marshal(result)
	assert.NoError(t, err)

	matchesResult := mock.MatchedBy(func(r *shared.GatewayResult) bool {
		return r.Reference == result.Reference && r.Amount == result.Amount
	})

	tests := []struct {
		name          string
		value         []byte
		setupMocks    func(svc *MockProcessingService, dlq *MockDeadLetterPublisher)
		expectedError string
	}{
		{
			name:  "successful settlement",
			value: validJSON,
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(nil)
			},
		},
		{
			name:  "contention resolved by an in-place retry",
			value: validJSON,
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(fmt.Errorf("apply: %w", shared.ErrContention)).Once()
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(nil).Once()
			},
		},
		{
			name:  "contention exhausts retries and is parked",
			value: validJSON,
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(fmt.Errorf("apply: %w", shared.ErrContention)).Times(3)
				dlq.On("PublishToDLQ", mock.Anything, "TOPUP-ABC", validJSON, mock.MatchedBy(func(reason string) bool {
					return strings.HasPrefix(reason, "retries exhausted after 3 attempts")
				})).Return(nil).Once()
			},
		},
		{
			name:  "contention exhausts retries and DLQ fails",
			value: validJSON,
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(errors.New("connection refused")).Times(3)
				dlq.On("PublishToDLQ", mock.Anything, "TOPUP-ABC", validJSON, mock.Anything).Return(errors.New("dlq error")).Once()
			},
			expectedError: "settling gateway result TOPUP-ABC failed",
		},
		{
			name:  "unknown reference parked",
			value: validJSON,
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(shared.ErrTransactionNotFound)
				dlq.On("PublishToDLQ", mock.Anything, "TOPUP-ABC", validJSON, shared.ErrTransactionNotFound.Error()).Return(nil)
			},
		},
		{
			name:  "rejected result with DLQ failure",
			value: validJSON,
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				svc.On("ProcessResult", mock.Anything, matchesResult).Return(shared.ErrGateway)
				dlq.On("PublishToDLQ", mock.Anything, "TOPUP-ABC", validJSON, mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: "settling gateway result",
		},
		{
			name:  "unmarshal error with successful DLQ publish",
			value: []byte("invalid json"),
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "TOPUP-ABC", []byte("invalid json"), mock.Anything).Return(nil)
			},
		},
		{
			name:  "unmarshal error with DLQ publish failure",
			value: []byte("invalid json"),
			setupMocks: func(svc *MockProcessingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "TOPUP-ABC", []byte("invalid json"), mock.Anything).Return(errors.New("dlq error"))
			},
			expectedError: "failed to unmarshal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockProcessingService{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(svc, dlq)

			handler := NewCallbackEventHandler(logger, svc, dlq, RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond})
			err := handler.HandleMessage(context.Background(), []byte("TOPUP-ABC"), tt.value)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			svc.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestHandleMessage_WithoutDLQ(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &MockProcessingService{}

	handler := NewCallbackEventHandler(logger, svc, nil, RetryPolicy{})
	err := handler.HandleMessage(context.Background(), []byte("k"), []byte("{"))

	assert.ErrorContains(t, err, "failed to unmarshal")
	svc.AssertNotCalled(t, "ProcessResult", mock.Anything, mock.Anything)
}

func TestHandleMessage_CanceledContextIsNotParked(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &MockProcessingService{}
	dlq := &MockDeadLetterPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	value, err := json.Marshal(shared.GatewayResult{Reference: "TOPUP-Z", OrderCode: 9, Amount: 10000, Status: "PAID"})
	assert.NoError(t, err)

	svc.On("ProcessResult", mock.Anything, mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(fmt.Errorf("apply: %w", context.Canceled)).Once()

	handler := NewCallbackEventHandler(logger, svc, dlq, RetryPolicy{MaxAttempts: 5, Backoff: time.Hour})
	err = handler.HandleMessage(ctx, []byte("TOPUP-Z"), value)

	assert.ErrorContains(t, err, "interrupted")
	svc.AssertExpectations(t)
	dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
