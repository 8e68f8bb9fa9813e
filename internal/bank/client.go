package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single settlement callback.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements Client against the Bank's settlement endpoint.
// The callback is invoked exactly once per close attempt; the engine owns
// the commit-or-reject decision, so no retries happen here.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Bank settlement client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// settleRequest is the JSON body posted to the Bank.
type settleRequest struct {
	LoanID     string `json:"loanId"`
	BestBid    uint64 `json:"bestBid"`
	BestBidder string `json:"bestBidder"`
}

// settleResponse is the Bank's reply.
type settleResponse struct {
	Success bool `json:"success"`
}

// Settle asks the Bank to release collateral to the winning bidder.
func (c *HTTPClient) Settle(ctx context.Context, loanID string, bestBid uint64, bestBidder string) (bool, error) {
	body, err := json.Marshal(settleRequest{
		LoanID:     loanID,
		BestBid:    bestBid,
		BestBidder: bestBidder,
	})
	if err != nil {
		return false, fmt.Errorf("marshal settle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("create settle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("send settle request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read settle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected http status %d", resp.StatusCode)
	}

	var result settleResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return false, fmt.Errorf("unmarshal settle response: %w", err)
	}
	return result.Success, nil
}

var _ Client = (*HTTPClient)(nil)
