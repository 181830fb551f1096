package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the Apify REST API on behalf of one token.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
}

// NewClient creates a new Apify API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger.With("component", "apify-client"),
	}
}

// Token returns the current API token.
func (c *Client) Token() string {
	return c.config.Token
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	// retry allows transient failures to be retried. Only idempotent
	// requests set it; starting a run must never be repeated.
	retry bool
}

// do executes r and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	if c.config.Token == "" {
		return nil, WrapError(r.op, ErrNotAuthenticated)
	}
	logger := c.logger.With("op", r.op, "method", r.method, "path", r.path)

	var body []byte
	if r.body != nil {
		var err error
		body, err = json.Marshal(r.body)
		if err != nil {
			return nil, WrapError(r.op, fmt.Errorf("marshaling request: %w", err))
		}
	}

	attempts := 1
	if r.retry {
		attempts += c.config.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			logger.Debug("retrying after delay", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return nil, WrapError(r.op, ctx.Err())
			case <-time.After(delay):
			}
		}

		resp, err := c.doRequest(ctx, r, body)
		if err != nil {
			lastErr = err
			if !IsRetryable(err) {
				if e, ok := err.(*Error); ok {
					e.Op = r.op
					return nil, e
				}
				return nil, WrapError(r.op, err)
			}
			logger.Debug("request failed, will retry", "error", err, "attempt", attempt)
			continue
		}

		logger.Debug("request successful", "bytes", len(resp))
		return resp, nil
	}

	if attempts == 1 {
		return nil, WrapError(r.op, lastErr)
	}
	return nil, WrapError(r.op, fmt.Errorf("all retries exhausted: %w", lastErr))
}

// doRequest performs a single HTTP request.
func (c *Client) doRequest(ctx context.Context, r request, body []byte) ([]byte, error) {
	u := strings.TrimRight(c.config.BaseURL, "/") + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, r.method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transportError{err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &transportError{err: fmt.Errorf("reading response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, errorFromResponse(r.op, httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// decodeData unmarshals the {"data": ...} wrapper most endpoints use.
func decodeData[T any](body []byte) (T, error) {
	var wrapper struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return wrapper.Data, fmt.Errorf("unmarshaling response: %w", err)
	}
	return wrapper.Data, nil
}
