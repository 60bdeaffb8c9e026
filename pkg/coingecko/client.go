package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultBaseURL     = "https://api.coingecko.com/api/v3"
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxAttempts = 8
	defaultBackoffBase = 2.0
	defaultUserAgent   = "cryptoetl/1.0 (+https://github.com/)"

	minRetryWait = time.Second
)

// StatusError reports a non-retryable HTTP status from the API.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko: http status %d from %s", e.StatusCode, e.Endpoint)
}

// FetchError reports an exhausted retry budget against one endpoint.
type FetchError struct {
	Endpoint string
	Attempts int
	Last     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("coingecko: request to %s failed after %d attempts: %v", e.Endpoint, e.Attempts, e.Last)
}

func (e *FetchError) Unwrap() error { return e.Last }

// Client wraps read-only access to the CoinGecko REST API with bounded
// retries. Rate-limit and server errors back off exponentially with jitter;
// any other non-200 status fails immediately.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	backoffBase float64
	userAgent   string

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// Option configures a new Client.
type Option func(*Client)

// WithBaseURL overrides the default API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxAttempts adjusts the retry budget.
func WithMaxAttempts(max int) Option {
	return func(c *Client) {
		if max > 0 {
			c.maxAttempts = max
		}
	}
}

// WithBackoffBase overrides the exponential backoff base.
func WithBackoffBase(base float64) Option {
	return func(c *Client) {
		if base > 1 {
			c.backoffBase = base
		}
	}
}

// WithUserAgent overrides the identifying client header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// withSleep replaces the blocking wait between retries. Test hook.
func withSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// withJitter replaces the jitter source. Test hook.
func withJitter(fn func() float64) Option {
	return func(c *Client) {
		if fn != nil {
			c.jitter = fn
		}
	}
}

// NewClient constructs a CoinGecko API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		userAgent:   defaultUserAgent,
		sleep:       sleepCtx,
		jitter:      uniformJitter,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// getJSON issues a GET against path and decodes the 200 body into result.
// Transient failures (429, 5xx, transport errors) are retried with backoff;
// any other status returns a *StatusError without retry. When the budget is
// exhausted the terminal *FetchError carries the endpoint and attempt count.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, result interface{}) error {
	endpoint := c.baseURL + path
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("coingecko: build request: %w", err)
		}
		if len(query) > 0 {
			req.URL.RawQuery = query.Encode()
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("coingecko: read response: %w", readErr)
			case resp.StatusCode == http.StatusOK:
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("coingecko: decode response from %s: %w", endpoint, err)
					}
				}
				return nil
			case transientStatus(resp.StatusCode):
				lastErr = fmt.Errorf("coingecko: http status %d", resp.StatusCode)
			default:
				return &StatusError{
					Endpoint:   endpoint,
					StatusCode: resp.StatusCode,
					Body:       strings.TrimSpace(string(body)),
				}
			}
		}

		if attempt < c.maxAttempts-1 {
			wait := c.retryWait(attempt)
			logx.WithContext(ctx).Infof("coingecko: transient failure on %s (attempt %d/%d): %v, retrying in %s",
				endpoint, attempt+1, c.maxAttempts, lastErr, wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return &FetchError{Endpoint: endpoint, Attempts: c.maxAttempts, Last: lastErr}
}

// retryWait derives the backoff for a zero-based attempt index, floored at
// one second: max(1s, base^attempt * jitter).
func (c *Client) retryWait(attempt int) time.Duration {
	secs := math.Pow(c.backoffBase, float64(attempt)) * c.jitter()
	if secs < minRetryWait.Seconds() {
		return minRetryWait
	}
	return time.Duration(secs * float64(time.Second))
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// uniformJitter draws from [0.5, 1.5).
func uniformJitter() float64 {
	return 0.5 + rand.Float64()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
