// Package httpx provides the outbound JSON HTTP client used by every
// provider integration: bounded retries, exponential backoff, and
// uniform error classification.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/akarpov/wortkarte/pkg/logger"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultRetries     = 3
	DefaultBackoffBase = 1 * time.Second

	bodySnippetLimit = 512
)

// Options tunes a single logical request. Zero values fall back to
// the package defaults.
type Options struct {
	Timeout     time.Duration
	Retries     int
	BackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries < 1 {
		o.Retries = DefaultRetries
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	return o
}

type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{},
		logger:     log,
	}
}

// RequestJSON issues method/url with an optional JSON body and
// returns the raw JSON response body. Transport failures, non-2xx
// statuses and undecodable bodies are retried with backoff
// base*2^(attempt-1); after opts.Retries attempts the last classified
// error is returned.
func (c *Client) RequestJSON(ctx context.Context, method, url string, body any, headers map[string]string, opts Options) (json.RawMessage, error) {
	opts = opts.withDefaults()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastErr *Error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		if attempt > 1 {
			delay := opts.BackoffBase * (1 << (attempt - 2))
			c.logger.Debug("retrying %s %s in %v (attempt %d/%d)", method, url, delay, attempt, opts.Retries)
			select {
			case <-ctx.Done():
				return nil, NewError(CodeNetwork, ctx.Err().Error(), nil)
			case <-time.After(delay):
			}
		}

		raw, err := c.do(ctx, method, url, payload, headers, opts.Timeout)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, headers map[string]string, timeout time.Duration) (json.RawMessage, *Error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return nil, NewError(CodeNetwork, err.Error(), nil)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("%s %s failed after %v: %v", method, url, time.Since(start), err)
		return nil, NewError(CodeNetwork, err.Error(), nil)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(CodeNetwork, fmt.Sprintf("failed to read response: %v", err), nil)
	}

	c.logger.Debug("%s %s -> %d in %v", method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewError(CodeHTTPStatus, "HTTP error", map[string]any{
			"status": resp.StatusCode,
			"body":   snippet(data),
		})
	}

	if !json.Valid(data) {
		return nil, NewError(CodeDecode, "response body is not valid JSON", map[string]any{
			"status": resp.StatusCode,
			"body":   snippet(data),
		})
	}

	return json.RawMessage(data), nil
}

func snippet(data []byte) string {
	if len(data) > bodySnippetLimit {
		data = data[:bodySnippetLimit]
	}
	return string(data)
}
