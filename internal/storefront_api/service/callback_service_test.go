package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/domain/shared"
)

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyCallback(body []byte) (*shared.GatewayResult, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.GatewayResult), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func TestCallbackServiceImpl_Accept(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	body := []byte(`{"code":"00"}`)

	t.Run("PublishesVerifiedResultKeyedByReference", func(t *testing.T) {
		verifier := new(MockVerifier)
		publisher := new(MockPublisher)
		service := NewCallbackService(logger, verifier, publisher)

		result := &shared.GatewayResult{Reference: "TOPUPREF", Amount: 50000, Status: "PAID"}
		verifier.On("VerifyCallback", body).Return(result, nil).Once()
		publisher.On("Publish", ctx, "TOPUPREF", mock.MatchedBy(func(r *shared.GatewayResult) bool {
			return r.CorrelationID == "corr-9" && r.IsPaid()
		})).Return(nil).Once()

		got, err := service.Accept(ctx, body, "corr-9")
		require.NoError(t, err)
		assert.Equal(t, "TOPUPREF", got.Reference)
		verifier.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("BadSignatureIsNotPublished", func(t *testing.T) {
		verifier := new(MockVerifier)
		publisher := new(MockPublisher)
		service := NewCallbackService(logger, verifier, publisher)

		verifier.On("VerifyCallback", body).Return(nil, shared.ErrInvalidSignature).Once()

		_, err := service.Accept(ctx, body, "")
		assert.ErrorIs(t, err, shared.ErrInvalidSignature)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("PublishFailure", func(t *testing.T) {
		verifier := new(MockVerifier)
		publisher := new(MockPublisher)
		service := NewCallbackService(logger, verifier, publisher)

		verifier.On("VerifyCallback", body).Return(&shared.GatewayResult{Reference: "R"}, nil).Once()
		publisher.On("Publish", ctx, "R", mock.Anything).Return(errors.New("broker down")).Once()

		_, err := service.Accept(ctx, body, "")
		require.Error(t, err)
		assert.False(t, errors.Is(err, shared.ErrInvalidSignature))
	})
}
