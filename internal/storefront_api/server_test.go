package storefront_api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/data/memory"
	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/platform/auth"
	"github.com/gamevault-settlement/internal/platform/gateway"
	"github.com/gamevault-settlement/internal/platform/metrics"
	"github.com/gamevault-settlement/internal/platform/ratelimit"
	"github.com/gamevault-settlement/internal/settlement"
)

const testSecret = "storefront-test-secret"

type offlineGateway struct{}

func (offlineGateway) CreatePaymentLink(context.Context, gateway.CheckoutRequest) (*gateway.CheckoutLink, error) {
	return nil, errors.New("gateway offline")
}

func (offlineGateway) GetPaymentStatus(context.Context, int64) (*shared.GatewayResult, error) {
	return nil, errors.New("gateway offline")
}

// storeReader serves items and accounts straight from the in-memory store
type storeReader struct {
	store *memory.Store
}

func (r storeReader) GetByID(_ context.Context, id uuid.UUID) (*item.Item, error) {
	it, ok := r.store.Item(id)
	if !ok {
		return nil, item.ErrItemNotFound{ItemID: id}
	}
	return it, nil
}

func (r storeReader) GetAccountByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	acc, ok := r.store.Account(id)
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return acc, nil
}

func (r storeReader) GetLedger(_ context.Context, accountID uuid.UUID, _, _ int) ([]*ledger.Entry, int64, error) {
	entries := r.store.Entries(accountID)
	return entries, int64(len(entries)), nil
}

type noCallbacks struct{}

func (noCallbacks) Accept(context.Context, []byte, string) (*shared.GatewayResult, error) {
	return nil, shared.ErrInvalidSignature
}

type testServer struct {
	store   *memory.Store
	handler http.Handler
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	m := metrics.New(prometheus.NewRegistry())

	engine := settlement.NewEngine(store, offlineGateway{}, config.SettlementConfig{
		MinTopUpAmount: decimal.NewFromInt(10000),
		MaxRetries:     3,
		RetryBackoff:   time.Millisecond,
		TopUpExpiry:    30 * time.Minute,
		SweepInterval:  time.Minute,
	}, logger, settlement.WithRecorder(m))

	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server: config.ServerConfig{
			Port:            0,
			ShutdownTimeout: time.Second,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			IdleTimeout:     time.Second,
		},
	}

	reader := storeReader{store: store}
	srv := NewServer(logger, cfg, Dependencies{
		Settlement: engine,
		Items:      reader,
		Accounts:   reader,
		Callbacks:  noCallbacks{},
		Verifier:   auth.NewJWTVerifier(testSecret, 0),
		Limiter:    ratelimit.NewMemoryLimiter(rateLimit, time.Minute, 1000),
		Metrics:    m,
	})

	return &testServer{store: store, handler: srv.Handler()}
}

func mintToken(t *testing.T, accountID uuid.UUID, isAdmin bool) string {
	t.Helper()
	claims := auth.Claims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) seed(t *testing.T, balance, price int64) (*account.Account, *item.Item) {
	t.Helper()
	acc, err := account.NewAccount("buyer", "buyer@example.com", decimal.NewFromInt(balance), false)
	require.NoError(t, err)
	s.store.AddAccount(acc)

	it, err := item.NewItem("Radiant account", "Valorant", decimal.NewFromInt(price), nil, nil)
	require.NoError(t, err)
	s.store.AddItem(it)
	return acc, it
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error         string `json:"error"`
		CorrelationID string `json:"correlation_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.CorrelationID)
	return body.Error
}

func TestServer_PurchaseFlow(t *testing.T) {
	s := newTestServer(t, 100)
	buyer, it := s.seed(t, 100000, 60000)
	token := mintToken(t, buyer.ID, false)

	rr := s.do(http.MethodGet, "/api/v1/items/"+it.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodPost, "/api/v1/items/"+it.ID.String()+"/purchase", token, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))

	acc, ok := s.store.Account(buyer.ID)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(40000).Equal(acc.Balance))

	sold, ok := s.store.Item(it.ID)
	require.True(t, ok)
	assert.Equal(t, shared.ItemStatusSold, sold.Status)

	rr = s.do(http.MethodPost, "/api/v1/items/"+it.ID.String()+"/purchase", token, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ITEM_UNAVAILABLE", errorCode(t, rr))

	rr = s.do(http.MethodGet, "/api/v1/accounts/me/ledger", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"PURCHASE"`)
}

func TestServer_Authentication(t *testing.T) {
	s := newTestServer(t, 100)
	buyer, it := s.seed(t, 100000, 60000)

	rr := s.do(http.MethodPost, "/api/v1/items/"+it.ID.String()+"/purchase", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rr))

	rr = s.do(http.MethodGet, "/api/v1/accounts/me", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/api/v1/accounts/me", mintToken(t, buyer.ID, false), "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_AdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t, 100)
	buyer, _ := s.seed(t, 100000, 60000)

	rr := s.do(http.MethodPost, "/api/v1/admin/orders/"+uuid.NewString()+"/refund", mintToken(t, buyer.ID, false), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rr))

	admin, err := account.NewAccount("ops", "ops@example.com", decimal.Zero, true)
	require.NoError(t, err)
	s.store.AddAccount(admin)

	rr = s.do(http.MethodPost, "/api/v1/admin/accounts/"+buyer.ID.String()+"/adjustments",
		mintToken(t, admin.ID, true), `{"amount": 2500, "reason": "goodwill"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	acc, _ := s.store.Account(buyer.ID)
	assert.True(t, decimal.NewFromInt(102500).Equal(acc.Balance))
}

func TestServer_CallbackRejectsBadSignature(t *testing.T) {
	s := newTestServer(t, 100)

	rr := s.do(http.MethodPost, "/api/v1/payments/callback", "", `{"signature":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "INVALID_SIGNATURE", errorCode(t, rr))
}

func TestServer_RateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	_, it := s.seed(t, 0, 100)

	for i := 0; i < 2; i++ {
		rr := s.do(http.MethodGet, "/api/v1/items/"+it.ID.String(), "", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := s.do(http.MethodGet, "/api/v1/items/"+it.ID.String(), "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rr))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t, 100)
	buyer, it := s.seed(t, 100000, 60000)

	rr := s.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = s.do(http.MethodPost, "/api/v1/items/"+it.ID.String()+"/purchase", mintToken(t, buyer.ID, false), "")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "gamevault_settlement_purchases_total")
	assert.Contains(t, body, `route="/api/v1/items/:id/purchase"`)
}
