// Package payments verifies storefront payments against the PortOne API.
// The client never trusts amounts reported by the browser: the order total
// is checked against what the payment gateway actually captured.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/teamace/ballshop/pkg/config"
	"github.com/teamace/ballshop/pkg/observability"
)

// Verification outcomes.
const (
	ResultCompleted = "COMPLETED"
	ResultFailed    = "FAILED"
)

// ErrPaymentNotFound indicates the gateway has no record of the payment.
var ErrPaymentNotFound = errors.New("payments: payment not found")

// Client talks to the PortOne payment API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *observability.Logger
}

// NewClient creates the payment client.
func NewClient(cfg config.PaymentsConfig, logger *observability.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// payment is the slice of the gateway's response the verification needs.
type payment struct {
	Status string `json:"status"`
	Amount struct {
		Total int `json:"total"`
	} `json:"amount"`
}

// Verify fetches the payment from the gateway and checks it was captured
// for the expected amount. The returned result is an order status value.
func (c *Client) Verify(ctx context.Context, paymentID string, expectedAmount int) (string, error) {
	p, err := c.fetch(ctx, paymentID)
	if err != nil {
		return "", err
	}

	if p.Status != "PAID" {
		if c.logger != nil {
			c.logger.WithFields(map[string]interface{}{
				"payment_id": paymentID,
				"status":     p.Status,
			}).Warn("payment not captured")
		}
		return ResultFailed, nil
	}
	if p.Amount.Total != expectedAmount {
		if c.logger != nil {
			c.logger.WithFields(map[string]interface{}{
				"payment_id": paymentID,
				"expected":   expectedAmount,
				"captured":   p.Amount.Total,
			}).Warn("payment amount mismatch")
		}
		return ResultFailed, nil
	}
	return ResultCompleted, nil
}

func (c *Client) fetch(ctx context.Context, paymentID string) (*payment, error) {
	endpoint := c.baseURL + "/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("payments: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "PortOne "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("payments: gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var p payment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("payments: failed to decode gateway response: %w", err)
	}
	return &p, nil
}
