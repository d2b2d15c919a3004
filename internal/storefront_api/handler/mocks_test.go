package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/domain/account"
	"github.com/gamevault-settlement/internal/domain/item"
	"github.com/gamevault-settlement/internal/domain/ledger"
	"github.com/gamevault-settlement/internal/domain/order"
	"github.com/gamevault-settlement/internal/domain/shared"
	"github.com/gamevault-settlement/internal/domain/topup"
	"github.com/gamevault-settlement/internal/settlement"
	"github.com/gamevault-settlement/internal/storefront_api/middleware"
)

type MockSettlementService struct {
	mock.Mock
}

func (m *MockSettlementService) Purchase(ctx context.Context, p shared.Principal, itemID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, p, itemID)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockSettlementService) CreateTopUp(ctx context.Context, p shared.Principal, amount decimal.Decimal) (*settlement.TopUpCheckout, error) {
	args := m.Called(ctx, p, amount)
	c, _ := args.Get(0).(*settlement.TopUpCheckout)
	return c, args.Error(1)
}

func (m *MockSettlementService) CheckTopUp(ctx context.Context, p shared.Principal, reference string) (*topup.Transaction, error) {
	args := m.Called(ctx, p, reference)
	tx, _ := args.Get(0).(*topup.Transaction)
	return tx, args.Error(1)
}

func (m *MockSettlementService) RefundOrder(ctx context.Context, p shared.Principal, orderID uuid.UUID, reason string) (*order.Order, error) {
	args := m.Called(ctx, p, orderID, reason)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockSettlementService) AdjustBalance(ctx context.Context, p shared.Principal, accountID uuid.UUID, amount decimal.Decimal, reason string) (*ledger.Entry, error) {
	args := m.Called(ctx, p, accountID, amount, reason)
	e, _ := args.Get(0).(*ledger.Entry)
	return e, args.Error(1)
}

type MockItemReader struct {
	mock.Mock
}

func (m *MockItemReader) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	args := m.Called(ctx, id)
	it, _ := args.Get(0).(*item.Item)
	return it, args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	acc, _ := args.Get(0).(*account.Account)
	return acc, args.Error(1)
}

func (m *MockAccountService) GetLedger(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	entries, _ := args.Get(0).([]*ledger.Entry)
	return entries, args.Get(1).(int64), args.Error(2)
}

type MockCallbackService struct {
	mock.Mock
}

func (m *MockCallbackService) Accept(ctx context.Context, body []byte, correlationID string) (*shared.GatewayResult, error) {
	args := m.Called(ctx, body, correlationID)
	r, _ := args.Get(0).(*shared.GatewayResult)
	return r, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter returns a router that authenticates every request as p. A zero principal
// leaves the request anonymous.
func setupTestRouter(p shared.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.Use(func(c *gin.Context) {
		if !p.IsZero() {
			c.Set(middleware.PrincipalKey, p)
		}
	})
	return r
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, into any) *MetaInfo {
	t.Helper()
	var envelope struct {
		Data          json.RawMessage `json:"data"`
		CorrelationID string          `json:"correlation_id"`
		Meta          *MetaInfo       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.CorrelationID)
	require.NoError(t, json.Unmarshal(envelope.Data, into))
	return envelope.Meta
}
