// Package httpclient provides a retrying HTTP client used by the LLM
// provider adapters. Retry-after hints from provider rate-limit headers
// take precedence over exponential backoff.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RateLimitInfo carries whatever the provider exposed about its limits.
type RateLimitInfo struct {
	RetryAfter        time.Duration
	ResetTime         int64
	RequestsRemaining int
	TokensRemaining   int
}

// HeaderParser extracts rate-limit info from response headers.
type HeaderParser func(http.Header) RateLimitInfo

// Client wraps http.Client with bounded retries on transient failures.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	headerParser HeaderParser
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

func WithHeaderParser(parser HeaderParser) Option {
	return func(c *Client) {
		c.headerParser = parser
	}
}

// New creates a client with sensible defaults for LLM traffic.
func New(opts ...Option) *Client {
	c := &Client{
		client:     &http.Client{Timeout: 120 * time.Second},
		maxRetries: 2,
		baseDelay:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryable(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Do executes the request, retrying transient failures up to maxRetries.
// Requests with bodies must set GetBody (http.NewRequest does for common
// body types).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				time.Sleep(c.backoff(attempt, RateLimitInfo{}))
				continue
			}
			return nil, lastErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if !retryable(resp.StatusCode) || attempt >= c.maxRetries {
			return resp, nil
		}

		var info RateLimitInfo
		if c.headerParser != nil {
			info = c.headerParser(resp.Header)
		}
		resp.Body.Close()

		delay := c.backoff(attempt, info)
		slog.Debug("Retrying HTTP request",
			"status", resp.StatusCode, "attempt", attempt+1, "delay", delay)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

func (c *Client) backoff(attempt int, info RateLimitInfo) time.Duration {
	if info.RetryAfter > 0 {
		return info.RetryAfter
	}
	if info.ResetTime > 0 {
		if delay := time.Until(time.Unix(info.ResetTime, 0)); delay > 0 {
			return delay
		}
	}
	exp := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
	return exp + time.Duration(float64(exp)*0.1)
}
