package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Fatal conditions that abort the whole scan. Every other request failure is
// handled locally by the check that triggered it.
var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrAccountBlocked = errors.New("account has been blocked")
)

// IsFatal reports whether err is one of the two scan-aborting conditions.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrAccountBlocked)
}

// Response is a fully read HTTP response. The body is buffered so checks can
// re-parse it as often as they need.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the body as a JSON object. ok is false for non-JSON bodies.
func (r *Response) JSON() (map[string]interface{}, bool) {
	var body map[string]interface{}
	if err := json.Unmarshal(r.Body, &body); err != nil {
		return nil, false
	}
	return body, true
}

// Stats holds request counters maintained by the gateway.
type Stats struct {
	TotalRequests    int `json:"total_requests"`
	RateLimitedCount int `json:"rate_limited_count"`
	ErrorCount       int `json:"error_count"`
}

// Options configures a tenant gateway.
type Options struct {
	Domain         string
	RateLimitDelay time.Duration
	Proxy          string
	UserAgent      string

	// BaseURL overrides the https://<domain> base, used by tests to point
	// the gateway at a local server.
	BaseURL string
}

// Client issues paced requests against a single tenant and tracks counters.
// It is driven from one control-flow thread; no internal locking.
type Client struct {
	baseURL     string
	delay       time.Duration
	userAgent   string
	httpClient  *http.Client
	lastRequest time.Time
	stats       Stats
}

// New builds a gateway for the tenant. Redirects are never followed
// automatically; checks inspect Location headers themselves.
func New(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://" + opts.Domain
	}

	transport := &http.Transport{ForceAttemptHTTP2: true}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		delay:     opts.RateLimitDelay,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Get issues a paced GET and inspects the response for lockout signals.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, path, params, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp, c.checkLockout(resp)
}

// Post issues a paced POST with a JSON body and inspects the response.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPost, path, nil, body, nil)
	if err != nil {
		return nil, err
	}
	return resp, c.checkLockout(resp)
}

// Patch issues a paced PATCH with a JSON body and inspects the response.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	resp, err := c.do(ctx, http.MethodPatch, path, nil, body, nil)
	if err != nil {
		return nil, err
	}
	return resp, c.checkLockout(resp)
}

// Options issues a paced OPTIONS preflight. The response is not inspected for
// lockout signals; it is only used to read CORS headers.
func (c *Client) Options(ctx context.Context, path string, headers map[string]string) (*Response, error) {
	return c.do(ctx, http.MethodOptions, path, nil, nil, headers)
}

// MeasureTiming issues a paced request and returns the elapsed wall-clock
// milliseconds alongside the response, for timing-based inference.
func (c *Client) MeasureTiming(ctx context.Context, method, path string, body interface{}) (*Response, float64, error) {
	start := time.Now()
	resp, err := c.do(ctx, method, path, nil, body, nil)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		return nil, elapsed, err
	}
	return resp, elapsed, nil
}

// Stats returns a copy of the request counters.
func (c *Client) Stats() Stats {
	return c.stats
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}, headers map[string]string) (*Response, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	c.stats.TotalRequests++

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.stats.ErrorCount++
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		c.stats.ErrorCount++
		return nil, err
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.stats.ErrorCount++
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.stats.ErrorCount++
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// pace waits so the interval since the previous request is at least the
// configured delay.
func (c *Client) pace(ctx context.Context) error {
	if c.delay > 0 && !c.lastRequest.IsZero() {
		if wait := c.delay - time.Since(c.lastRequest); wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// checkLockout inspects a response for rate-limit or account-block signals.
func (c *Client) checkLockout(resp *Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		c.stats.RateLimitedCount++
		return ErrRateLimited
	}

	body, ok := resp.JSON()
	if !ok {
		return nil
	}

	if errValue, ok := body["error"].(string); ok && errValue != "" {
		if strings.Contains(strings.ToLower(errValue), "blocked") {
			return ErrAccountBlocked
		}

		if desc, ok := body["error_description"].(string); ok &&
			strings.Contains(strings.ToLower(desc), "too many") {
			c.stats.RateLimitedCount++
			return ErrRateLimited
		}
	}

	return nil
}
