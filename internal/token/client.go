package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a single token call.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements Client against a token node speaking HTTP
// JSON-RPC 2.0. Mutating calls are never retried here: transfer and burn
// are not idempotent, and the engine's contract pushes retries to callers.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
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

// NewHTTPClient creates a new token JSON-RPC client.
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

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs a single JSON-RPC round trip and decodes the result.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send rpc request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read rpc response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected http status %d", httpResp.StatusCode)
	}

	var resp rpcResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("unmarshal rpc response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("unmarshal rpc result: %w", err)
		}
	}
	return nil
}

// Allowance returns how much of owner's funds spender may currently pull.
func (c *HTTPClient) Allowance(ctx context.Context, owner, spender string) (uint64, error) {
	var amount uint64
	if err := c.call(ctx, "token_allowance", []interface{}{owner, spender}, &amount); err != nil {
		return 0, fmt.Errorf("get allowance: %w", err)
	}
	return amount, nil
}

// TransferFrom moves amount from owner to recipient using the engine's allowance.
func (c *HTTPClient) TransferFrom(ctx context.Context, owner, recipient string, amount uint64) (bool, error) {
	var ok bool
	if err := c.call(ctx, "token_transferFrom", []interface{}{owner, recipient, amount}, &ok); err != nil {
		return false, fmt.Errorf("transfer from: %w", err)
	}
	return ok, nil
}

// Transfer moves amount from the engine's custody to recipient.
func (c *HTTPClient) Transfer(ctx context.Context, recipient string, amount uint64) error {
	var ok bool
	if err := c.call(ctx, "token_transfer", []interface{}{recipient, amount}, &ok); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if !ok {
		return fmt.Errorf("transfer: token rejected transfer of %d to %s", amount, recipient)
	}
	return nil
}

// Burn irreversibly destroys amount units held in the engine's custody.
func (c *HTTPClient) Burn(ctx context.Context, amount uint64) error {
	var ok bool
	if err := c.call(ctx, "token_burn", []interface{}{amount}, &ok); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	if !ok {
		return fmt.Errorf("burn: token rejected burn of %d", amount)
	}
	return nil
}

var _ Client = (*HTTPClient)(nil)
