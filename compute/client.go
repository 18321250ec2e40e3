package compute

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultAppAddress is the confidential-computing app deployed on
	// Bellecour that processes experience claims.
	DefaultAppAddress = "0x2b0e6b6a1d2e1c671809ce8c08a21f0db097a17a"

	// DefaultWorkerpool is the public SGX workerpool on Bellecour.
	DefaultWorkerpool = "0x5c288a5a69a7c5b42d9dd2d31bbabc1f5c9b0e0e"

	// DefaultCategory is the default computation category.
	DefaultCategory = 0

	// explorerURLTemplate is the human-inspection link for a task.
	explorerURLTemplate = "https://explorer.iex.ec/bellecour/task/%s"
)

// Config holds configuration for the compute-gateway client.
type Config struct {
	// BaseURL is the base URL for the compute-gateway REST API.
	BaseURL string

	// RateLimit is the number of requests per second allowed.
	// Default: 10
	RateLimit int

	// Timeout is the HTTP request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// RetryAttempts is the number of retry attempts for failed requests.
	// Default: 3
	RetryAttempts int

	// RetryDelay is the delay between retry attempts.
	// Default: 1 second
	RetryDelay time.Duration
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://gateway.bellecour.iex.ec/api",
		RateLimit:     10,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Client is an HTTP client for the compute-gateway API with rate limiting.
// It implements the Network interface.
type Client struct {
	cfg *Config

	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// Compile-time check that Client implements Network.
var _ Network = (*Client)(nil)

// NewClient creates a new compute-gateway client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
	}
}

// doRequest performs an HTTP request with rate limiting and retries.
func (c *Client) doRequest(ctx context.Context, method, path string,
	body []byte) ([]byte, error) {

	reqURL := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		// Wait for rate limiter
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(
			ctx, method, reqURL, reqBody,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w",
				err)
		}

		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

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
			return nil, lastErr
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response "+
				"body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited by gateway (429)")
			if attempt < c.cfg.RetryAttempts {
				// Exponential backoff for rate limiting
				time.Sleep(
					c.cfg.RetryDelay *
						time.Duration(attempt+1) * 2,
				)
				continue
			}
		case http.StatusNotFound:
			return nil, fmt.Errorf("resource not found (404): %s",
				string(respBody))
		case 500, 502, 503, 504:
			lastErr = fmt.Errorf("gateway error (%d): %s",
				resp.StatusCode, string(respBody))
			if attempt < c.cfg.RetryAttempts {
				time.Sleep(
					c.cfg.RetryDelay *
						time.Duration(attempt+1),
				)
				continue
			}
		default:
			return nil, fmt.Errorf("unexpected status code %d: %s",
				resp.StatusCode, string(respBody))
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w",
		c.cfg.RetryAttempts, lastErr)
}

// Address returns the account the gateway signs operations for.
func (c *Client) Address(ctx context.Context) (string, error) {
	respBody, err := c.doRequest(ctx, "GET", "/wallet/address", nil)
	if err != nil {
		return "", err
	}

	var resp addressResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse address: %w", err)
	}

	return resp.Address, nil
}

// CheckBalance returns the account stake in nano units.
func (c *Client) CheckBalance(ctx context.Context,
	addr string) (*big.Int, error) {

	path := fmt.Sprintf("/account/%s/balance", url.PathEscape(addr))
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var resp balanceResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}

	stake, ok := new(big.Int).SetString(resp.Stake, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stake amount %q", resp.Stake)
	}

	return stake, nil
}

// EncryptAndDeploy encrypts the payload and deploys it as a dataset,
// returning the opaque dataset reference.
func (c *Client) EncryptAndDeploy(ctx context.Context, payload []byte,
	name string) (string, error) {

	reqBody, err := json.Marshal(struct {
		Name    string `json:"name"`
		Payload string `json:"payload"`
	}{
		Name:    name,
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal dataset: %w", err)
	}

	respBody, err := c.doRequest(ctx, "POST", "/datasets", reqBody)
	if err != nil {
		return "", err
	}

	var resp datasetResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse dataset address: %w",
			err)
	}

	log.Debugf("Deployed dataset %s as %s", name, resp.Address)

	return resp.Address, nil
}

// SubmitTask submits a task order and returns the assigned task id.
func (c *Client) SubmitTask(ctx context.Context,
	order TaskOrder) (string, error) {

	reqBody, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task order: %w", err)
	}

	respBody, err := c.doRequest(ctx, "POST", "/tasks", reqBody)
	if err != nil {
		return "", err
	}

	var resp submitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse task id: %w", err)
	}

	log.Infof("Submitted task %s (app=%s dataset=%s)", resp.TaskID,
		order.App, order.Dataset)

	return resp.TaskID, nil
}

// TaskStatus returns the remote status of a task.
func (c *Client) TaskStatus(ctx context.Context,
	taskID string) (Status, error) {

	path := fmt.Sprintf("/tasks/%s", url.PathEscape(taskID))
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return StatusUnknown, err
	}

	var resp statusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return StatusUnknown, fmt.Errorf("failed to parse task "+
			"status: %w", err)
	}

	return ParseStatus(resp.Status), nil
}

// FetchResult downloads the result payload of a completed task.
func (c *Client) FetchResult(ctx context.Context,
	taskID string) ([]byte, error) {

	path := fmt.Sprintf("/tasks/%s/results", url.PathEscape(taskID))
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	return respBody, nil
}

// DefaultOrder returns a task order against the default app, workerpool and
// category, referencing the given dataset.
func DefaultOrder(datasetRef string) TaskOrder {
	return TaskOrder{
		App:        DefaultAppAddress,
		Dataset:    datasetRef,
		Workerpool: DefaultWorkerpool,
		Category:   DefaultCategory,
		Callback:   "0x0000000000000000000000000000000000000000",
		Params: TaskParams{
			Args:             "process-experience",
			InputFiles:       []string{},
			ResultEncryption: true,
			StorageProvider:  "ipfs",
			DeveloperLogger:  true,
		},
	}
}

// ExplorerURL returns the human-inspection link for a task.
func ExplorerURL(taskID string) string {
	return fmt.Sprintf(explorerURLTemplate, taskID)
}
