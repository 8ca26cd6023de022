// README: Payment gateway client: order creation over HTTP and confirmation signatures.
package paygate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleetrent/internal/types"
)

type OrderRequest struct {
	// AmountMinor is in the smallest currency unit.
	AmountMinor int64
	Currency    string
	Receipt     string
}

type Order struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
}

// Gateway is the slice of the provider API the payment module uses.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	KeyID() string
}

type HTTPClient struct {
	keyID   string
	secret  string
	baseURL string
	client  *http.Client
}

func NewHTTPClient(keyID, secret, baseURL string) *HTTPClient {
	return &HTTPClient{
		keyID:   keyID,
		secret:  secret,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *HTTPClient) KeyID() string { return c.keyID }

func (c *HTTPClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountMinor <= 0 {
		return nil, types.Invalid("amount", "must be positive")
	}
	body, err := json.Marshal(map[string]any{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(c.keyID, c.secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("paygate create order: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("paygate create order failed: %s", resp.Status)
	}

	var out Order
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paygate decode order: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("paygate: empty order id")
	}
	return &out, nil
}

func (c *HTTPClient) VerifySignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.secret, orderID, paymentID, signature)
}
