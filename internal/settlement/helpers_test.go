package settlement_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/data/memory"
	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/gateway"
	"github.com/gamevault-settlement/internal/settlement"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreatePaymentLink(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutLink, error) {
	args := m.Called(ctx, req)
	link, _ := args.Get(0).(*gateway.CheckoutLink)
	return link, args.Error(1)
}

func (m *mockGateway) GetPaymentStatus(ctx context.Context, orderCode int64) (*shared.GatewayResult, error) {
	args := m.Called(ctx, orderCode)
	result, _ := args.Get(0).(*shared.GatewayResult)
	return result, args.Error(1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingRecorder struct {
	mu         sync.Mutex
	retries    map[string]int
	operations map[string][]string
}

func (r *countingRecorder) ObserveOperation(operation string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation] = append(r.operations[operation], shared.ErrorCode(err))
}

func (r *countingRecorder) ObserveRetry(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries[operation]++
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
	ctxErrs     []error
}

func (c *fakeCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, id)
	c.ctxErrs = append(c.ctxErrs, ctx.Err())
	return nil
}

type harness struct {
	store    *memory.Store
	gateway  *mockGateway
	clock    *fakeClock
	recorder *countingRecorder
	cache    *fakeCache
	engine   *settlement.Engine
}

func newHarness(t *testing.T, opts ...settlement.Option) *harness {
	t.Helper()

	h := &harness{
		store:    memory.NewStore(),
		gateway:  &mockGateway{},
		clock:    &fakeClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)},
		recorder: &countingRecorder{retries: map[string]int{}, operations: map[string][]string{}},
		cache:    &fakeCache{},
	}

	cfg := config.SettlementConfig{
		MinTopUpAmount: decimal.NewFromInt(10000),
		MaxRetries:     3,
		RetryBackoff:   time.Millisecond,
		TopUpExpiry:    30 * time.Minute,
		SweepInterval:  time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	base := []settlement.Option{
		settlement.WithClock(h.clock),
		settlement.WithRecorder(h.recorder),
		settlement.WithItemCache(h.cache),
	}
	h.engine = settlement.NewEngine(h.store, h.gateway, cfg, logger, append(base, opts...)...)

	t.Cleanup(func() { h.gateway.AssertExpectations(t) })
	return h
}

func (h *harness) seedAccount(t *testing.T, balance int64, isAdmin bool) *account.Account {
	t.Helper()
	acc, err := account.NewAccount("player-"+uuid.NewString()[:8], "player@example.com", decimal.NewFromInt(balance), isAdmin)
	require.NoError(t, err)
	h.store.AddAccount(acc)
	return acc
}

func (h *harness) seedItem(t *testing.T, price int64) *item.Item {
	t.Helper()
	it, err := item.NewItem("Immortal smurf", "Valorant", decimal.NewFromInt(price), []string{"cover.png", "rank.png"}, []string{"Immortal 2"})
	require.NoError(t, err)
	h.store.AddItem(it)
	return it
}

func (h *harness) balance(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	acc, ok := h.store.Account(id)
	require.True(t, ok)
	return acc.Balance
}

func principal(acc *account.Account) shared.Principal {
	return shared.Principal{AccountID: acc.ID, IsAdmin: acc.IsAdmin}
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}
