package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/domain/outbox"
	"github.com/gamevault-settlement/internal/domain/shared"
)

// MockLedgerPublisher for testing
type MockLedgerPublisher struct {
	mock.Mock
}

func (m *MockLedgerPublisher) PublishToLedger(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

type publishCounter struct {
	ok, failed int
}

func (c *publishCounter) ObserveOutboxPublish(err error) {
	if err != nil {
		c.failed++
		return
	}
	c.ok++
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	message1, _ := sampleMessage(t, 1)
	message2, _ := sampleMessage(t, 2)
	exhausted, _ := sampleMessage(t, 3)
	exhausted.Attempts = 2

	tests := []struct {
		name          string
		setupMocks    func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher)
		expectedError string
		wantOK        int
		wantFailed    int
	}{
		{
			name: "successful processing of pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				publisher.On("PublishToLedger", mock.Anything, message1).Return(nil).Once()
				publisher.On("PublishToLedger", mock.Anything, message2).Return(nil).Once()
			},
			wantOK: 2,
		},
		{
			name: "error getting pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			expectedError: "failed to get pending outbox messages",
		},
		{
			name: "no pending messages",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name: "error publishing one message",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{message1, message2}, nil).Once()
				publisher.On("PublishToLedger", mock.Anything, message1).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				publisher.On("PublishToLedger", mock.Anything, message2).Return(nil).Once()
			},
			wantOK:     1,
			wantFailed: 1,
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{exhausted}, nil).Once()
				publisher.On("PublishToLedger", mock.Anything, exhausted).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				outboxRepo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
			wantFailed: 1,
		},
		{
			name: "increment failure skips the retry budget check",
			setupMocks: func(outboxRepo *MockOutboxRepo, publisher *MockLedgerPublisher) {
				outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{exhausted}, nil).Once()
				publisher.On("PublishToLedger", mock.Anything, exhausted).Return(errors.New("publish error")).Once()
				outboxRepo.On("IncrementAttempts", mock.Anything, int64(3)).Return(errors.New("db error")).Once()
			},
			wantFailed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outboxRepo := &MockOutboxRepo{}
			publisher := &MockLedgerPublisher{}
			counter := &publishCounter{}
			tt.setupMocks(outboxRepo, publisher)

			poller := NewPoller(cfg, outboxRepo, publisher, counter, testLogger())
			err := poller.processPendingMessages(context.Background())

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantOK, counter.ok)
			assert.Equal(t, tt.wantFailed, counter.failed)
			outboxRepo.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestPoller_Start(t *testing.T) {
	outboxRepo := &MockOutboxRepo{}
	publisher := &MockLedgerPublisher{}

	cfg := &config.OutboxConfig{
		PollingInterval:  10 * time.Millisecond,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	polled := make(chan struct{}, 1)
	outboxRepo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Run(func(mock.Arguments) {
		select {
		case polled <- struct{}{}:
		default:
		}
	})

	poller := NewPoller(cfg, outboxRepo, publisher, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(stopped)
	}()

	select {
	case <-polled:
	case <-time.After(time.Second):
		t.Fatal("poller never polled")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
