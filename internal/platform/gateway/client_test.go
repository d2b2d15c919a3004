package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamevault-settlement/internal/config"
)

const testChecksumKey = "checksum-key"

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.GatewayConfig{
		BaseURL:     server.URL,
		ClientID:    "client-id",
		APIKey:      "api-key",
		ChecksumKey: testChecksumKey,
		ReturnURL:   "https://shop.example/return",
		CancelURL:   "https://shop.example/cancel",
		Timeout:     200 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_CreatePaymentLink(t *testing.T) {
	t.Run("signs the request and returns the checkout url", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/payment-requests", r.URL.Path)
			assert.Equal(t, "client-id", r.Header.Get("x-client-id"))
			assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

			var body paymentRequestBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(42), body.OrderCode)
			assert.Equal(t, int64(50000), body.Amount)
			assert.Equal(t, "TOPUPREF", body.Description)

			want := Sign(testChecksumKey,
				"amount=50000&cancelUrl=https://shop.example/cancel&description=TOPUPREF&orderCode=42&returnUrl=https://shop.example/return")
			assert.Equal(t, want, body.Signature)

			_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.example/c/1","paymentLinkId":"pl-1"}}`))
		})

		link, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{
			OrderCode:   42,
			Amount:      50000,
			Description: "TOPUPREF",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://pay.example/c/1", link.CheckoutURL)
		assert.Equal(t, "pl-1", link.PaymentLinkID)
	})

	t.Run("non-success code is a rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code":"20","desc":"invalid amount","data":null}`))
		})

		_, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{OrderCode: 1, Amount: 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRejected))
	})

	t.Run("non-2xx status is a rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{OrderCode: 1, Amount: 1})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrRejected))
	})

	t.Run("timeout is not a rejection", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		})

		_, err := client.CreatePaymentLink(context.Background(), CheckoutRequest{OrderCode: 1, Amount: 1})
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrRejected))
	})
}

func TestClient_GetPaymentStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-requests/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"00","desc":"success","data":{"orderCode":42,"amount":50000,"amountPaid":50000,"status":"PAID","transactions":[{"reference":"FT123"}]}}`))
	})

	result, err := client.GetPaymentStatus(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.OrderCode)
	assert.Equal(t, int64(50000), result.Amount)
	assert.Equal(t, "FT123", result.TransactionCode)
	assert.True(t, result.IsPaid())
}
