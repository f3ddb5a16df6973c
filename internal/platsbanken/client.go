// Package platsbanken is a client for the Arbetsförmedlingen Platsbanken job
// search API and the paginated fetcher that drives it.
package platsbanken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonathan/jobgeo/internal/logger"
	"github.com/jonathan/jobgeo/internal/retry"
	"github.com/jonathan/jobgeo/internal/types"
)

const (
	DefaultBaseURL     = "https://platsbanken-api.arbetsformedlingen.se/jobs/v1"
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "jobgeo-ingest/1.0"
	DefaultMinInterval = 500 * time.Millisecond

	maxBodyBytes = 16 << 20
	maxErrorBody = 512
)

// DefaultRetryPolicy retries transient failures three times with 500ms, 1s backoff.
func DefaultRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Retryable:   IsTransient,
	}
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	userAgent   string
	minInterval time.Duration
	retry       retry.Policy
	log         *logger.Logger
	limiter     *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMinInterval spaces request starts at least interval apart, across all goroutines.
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.minInterval = interval
	}
}

// WithRetryPolicy replaces the retry policy. A nil Retryable keeps IsTransient.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		if p.Retryable == nil {
			p.Retryable = IsTransient
		}
		c.retry = p
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		userAgent:   DefaultUserAgent,
		minInterval: DefaultMinInterval,
		retry:       DefaultRetryPolicy(),
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.limiter = newLimiter(c.minInterval)
	return c
}

// newLimiter allows one request per interval with no burst. A non-positive
// interval disables pacing.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Ads         []AdSummary `json:"ads"`
	NumberOfAds *int        `json:"numberOfAds"`
}

// AdSummary is a search hit; the full record needs a Detail lookup.
type AdSummary struct {
	ID    types.StringOrNumber `json:"id"`
	Title string               `json:"title"`
}

// Search posts payload with the pagination cursor injected. The caller's map is
// not modified.
func (c *Client) Search(ctx context.Context, payload map[string]any, startIndex, maxRecords int) (*SearchResponse, error) {
	body, err := json.Marshal(WithCursor(payload, startIndex, maxRecords))
	if err != nil {
		return nil, fmt.Errorf("platsbanken: encode search payload: %w", err)
	}

	endpoint := c.baseURL + "/search"
	var out SearchResponse
	err = c.withRetry(ctx, "search", endpoint, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		out = SearchResponse{}
		return c.doJSON(ctx, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Detail fetches the full posting. A 404 yields ErrNotFound without retrying.
func (c *Client) Detail(ctx context.Context, id string) (*types.JobDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("platsbanken: detail lookup without id")
	}

	endpoint := c.baseURL + "/job/" + url.PathEscape(id)
	var out types.JobDetail
	err := c.withRetry(ctx, "detail", endpoint, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		out = types.JobDetail{}
		return c.doJSON(ctx, req, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) withRetry(ctx context.Context, op, endpoint string, fn func(ctx context.Context) error) error {
	p := c.retry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		c.log.Warn("Retrying request",
			"op", op,
			"url", endpoint,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err,
		)
	}
	return retry.Do(ctx, p, fn)
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(c.userAgent) != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound && req.Method == http.MethodGet {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       snippet,
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{URL: req.URL.String(), Cause: err}
	}
	return nil
}
