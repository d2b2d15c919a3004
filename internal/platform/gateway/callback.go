package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gamevault-settlement/internal/domain/shared"
)

type callbackData struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	Reference           string `json:"reference"`
	TransactionDateTime string `json:"transactionDateTime"`
	PaymentLinkID       string `json:"paymentLinkId"`
	Code                string `json:"code"`
}

// VerifyCallback authenticates a webhook body and converts it into a GatewayResult. The
// signature covers every field of data; a mismatch fails with shared.ErrInvalidSignature.
func (c *Client) VerifyCallback(body []byte) (*shared.GatewayResult, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: undecodable callback: %v", shared.ErrInvalidSignature, err)
	}
	if env.Signature == "" || len(env.Data) == 0 {
		return nil, fmt.Errorf("%w: callback is not signed", shared.ErrInvalidSignature)
	}

	fields := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(env.Data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: undecodable callback data: %v", shared.ErrInvalidSignature, err)
	}
	if !verify(c.checksumKey, SortedData(fields), env.Signature) {
		c.logger.Warn("Rejected callback with bad signature")
		return nil, shared.ErrInvalidSignature
	}

	var data callbackData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to decode callback data: %w", err)
	}

	status := "UNPAID"
	if env.Code == successCode && (data.Code == "" || data.Code == successCode) {
		status = "PAID"
	}

	return &shared.GatewayResult{
		Reference:       data.Description,
		OrderCode:       data.OrderCode,
		Amount:          data.Amount,
		Status:          status,
		TransactionCode: data.Reference,
		ReceivedAt:      time.Now().UTC(),
	}, nil
}
