package rpcwallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// rpcRequest is a JSON-RPC 2.0 request envelope.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// rpcResponse is a JSON-RPC 2.0 response envelope.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// rpcClient is a rate-limited JSON-RPC HTTP client with bounded retries.
type rpcClient struct {
	cfg *Config

	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

func newRPCClient(cfg *Config) *rpcClient {
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)

	return &rpcClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
	}
}

// call performs a JSON-RPC request against the endpoint and unmarshals the
// result into out. Transport failures and server errors are retried with
// backoff; RPC-level errors are returned immediately.
func (c *rpcClient) call(ctx context.Context, endpoint, method string,
	out interface{}, params ...interface{}) error {

	if params == nil {
		params = []interface{}{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal rpc request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(
			ctx, "POST", endpoint, bytes.NewReader(reqBody),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if attempt < c.cfg.RetryAttempts {
				time.Sleep(
					c.cfg.RetryDelay *
						time.Duration(attempt+1),
				)
				continue
			}
			return lastErr
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w",
				err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("unexpected status code %d: %s",
				resp.StatusCode, string(respBody))
			if resp.StatusCode >= 500 &&
				attempt < c.cfg.RetryAttempts {

				time.Sleep(
					c.cfg.RetryDelay *
						time.Duration(attempt+1),
				)
				continue
			}
			return lastErr
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			return fmt.Errorf("failed to parse rpc response: %w",
				err)
		}
		if rpcResp.Error != nil {
			return rpcResp.Error
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("failed to parse rpc result: %w",
				err)
		}

		return nil
	}

	return fmt.Errorf("rpc call %s failed after %d attempts: %w", method,
		c.cfg.RetryAttempts, lastErr)
}
