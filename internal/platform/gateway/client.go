// Package gateway is the adapter for the hosted payment provider used for wallet top-ups.
// Outbound requests and inbound callbacks are both authenticated with HMAC-SHA256 over a
// canonical key=value string using the merchant checksum key.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gamevault-settlement/internal/config"
	"github.com/gamevault-settlement/internal/domain/shared"
)

const successCode = "00"

// ErrRejected means the gateway answered and refused the request. Transport failures and
// timeouts are reported as other errors.
var ErrRejected = errors.New("payment gateway rejected the request")

// CheckoutRequest describes a payment link to create
type CheckoutRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	BuyerName   string
	BuyerEmail  string
}

// CheckoutLink is the hosted payment page returned by the gateway
type CheckoutLink struct {
	CheckoutURL   string
	PaymentLinkID string
	QRCode        string
}

// Client talks to the gateway's merchant API
type Client struct {
	baseURL     string
	clientID    string
	apiKey      string
	checksumKey string
	returnURL   string
	cancelURL   string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient creates a gateway client whose requests are bounded by cfg.Timeout
func NewClient(cfg config.GatewayConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		clientID:    cfg.ClientID,
		apiKey:      cfg.APIKey,
		checksumKey: cfg.ChecksumKey,
		returnURL:   cfg.ReturnURL,
		cancelURL:   cfg.CancelURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		logger:      logger,
	}
}

type envelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature,omitempty"`
}

type paymentRequestBody struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	BuyerName   string `json:"buyerName,omitempty"`
	BuyerEmail  string `json:"buyerEmail,omitempty"`
	Signature   string `json:"signature"`
}

type paymentLinkData struct {
	CheckoutURL   string `json:"checkoutUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
	QRCode        string `json:"qrCode"`
}

// CreatePaymentLink registers a payment request and returns its checkout page
func (c *Client) CreatePaymentLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	body := paymentRequestBody{
		OrderCode:   req.OrderCode,
		Amount:      req.Amount,
		Description: req.Description,
		CancelURL:   c.cancelURL,
		ReturnURL:   c.returnURL,
		BuyerName:   req.BuyerName,
		BuyerEmail:  req.BuyerEmail,
		Signature: Sign(c.checksumKey,
			checkoutSignatureData(req.Amount, c.cancelURL, req.Description, req.OrderCode, c.returnURL)),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	var data paymentLinkData
	if err := c.do(ctx, http.MethodPost, "/v2/payment-requests", payload, &data); err != nil {
		c.logger.Error("Failed to create payment link", "order_code", req.OrderCode, "error", err)
		return nil, err
	}
	if data.CheckoutURL == "" {
		return nil, fmt.Errorf("%w: response carries no checkout url", ErrRejected)
	}

	return &CheckoutLink{
		CheckoutURL:   data.CheckoutURL,
		PaymentLinkID: data.PaymentLinkID,
		QRCode:        data.QRCode,
	}, nil
}

type paymentStatusData struct {
	OrderCode    int64  `json:"orderCode"`
	Amount       int64  `json:"amount"`
	AmountPaid   int64  `json:"amountPaid"`
	Status       string `json:"status"`
	Transactions []struct {
		Reference string `json:"reference"`
	} `json:"transactions"`
}

// GetPaymentStatus queries the gateway for the state of orderCode
func (c *Client) GetPaymentStatus(ctx context.Context, orderCode int64) (*shared.GatewayResult, error) {
	var data paymentStatusData
	path := "/v2/payment-requests/" + strconv.FormatInt(orderCode, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		c.logger.Warn("Failed to query payment status", "order_code", orderCode, "error", err)
		return nil, err
	}

	result := &shared.GatewayResult{
		OrderCode: data.OrderCode,
		Amount:    data.Amount,
		Status:    data.Status,
	}
	if len(data.Transactions) > 0 {
		result.TransactionCode = data.Transactions[0].Reference
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: undecodable response: %v", ErrRejected, err)
	}
	if env.Code != successCode {
		return fmt.Errorf("%w: code %s: %s", ErrRejected, env.Code, env.Desc)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: undecodable data: %v", ErrRejected, err)
	}
	return nil
}
