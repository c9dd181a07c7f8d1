// Package origin provides the HTTP client for the site publishing origin.
// The demo server and the cache warmer use it to fetch fresh page content on
// a cache miss, with error classification, exponential backoff retries, and
// Prometheus metrics.
package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/civiforge/sitecache/pkg/cache"
	"github.com/civiforge/sitecache/pkg/logging"
)

// Prometheus metrics for origin fetches.
var (
	originRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "origin_requests_total",
		Help: "Total origin fetches by status",
	}, []string{"status"})

	originRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "origin_request_duration_seconds",
		Help:    "Origin fetch duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// Page is a rendered page payload fetched from the publishing origin.
// It is the payload type the demo server caches.
type Page struct {
	Body        []byte `json:"body" msgpack:"body"`
	ContentType string `json:"content_type" msgpack:"content_type"`
}

// VersionHeader carries the published content version of a page.
const VersionHeader = "X-Content-Version"

// Config holds the origin client configuration.
type Config struct {
	// BaseURL of the publishing origin (e.g. "http://publisher:9000").
	BaseURL string

	// UserAgent sent with every fetch.
	UserAgent string

	// Timeout per fetch attempt.
	Timeout time.Duration

	// Retry controls backoff behavior for server and network errors.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "sitecache/0.1.0",
		Timeout:   10 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client fetches rendered pages from the publishing origin.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new origin client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("origin base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse origin base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logging.NewLogger("origin-client"),
	}, nil
}

// FetchPage fetches the rendered content for one page. Returns the page and
// its published content version (from the X-Content-Version header).
// A 404 yields an error matching ErrPageNotFound; 5xx and network errors are
// retried with backoff.
func (c *Client) FetchPage(ctx context.Context, key cache.Key) (*Page, string, error) {
	fetchURL := c.pageURL(key)

	start := time.Now()
	defer func() {
		originRequestDuration.Observe(time.Since(start).Seconds())
	}()

	var page *Page
	var version string

	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() (ErrorClass, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
		if err != nil {
			return ErrorClassClient, fmt.Errorf("build origin request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			originRequestsTotal.WithLabelValues("network_error").Inc()
			return ErrorClassNetwork, fmt.Errorf("origin request: %w", err)
		}
		defer resp.Body.Close()

		originRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotFound {
			return ErrorClassClient, &Error{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassClient,
				Message:    key.String(),
				Err:        ErrPageNotFound,
			}
		}
		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			return errClass, &Error{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return ErrorClassNetwork, fmt.Errorf("read origin response: %w", err)
		}

		page = &Page{
			Body:        body,
			ContentType: resp.Header.Get("Content-Type"),
		}
		version = resp.Header.Get(VersionHeader)
		return "", nil
	})
	if err != nil {
		return nil, "", err
	}

	c.logger.Debug().
		Str("site_id", key.SiteID).
		Str("slug", key.PageSlug).
		Str("version", version).
		Dur("duration", time.Since(start)).
		Msg("Fetched page from origin")

	return page, version, nil
}

// pageURL builds the origin URL for a page:
// {base}/sites/{siteID}/pages/{slug}[?variant={variant}]
func (c *Client) pageURL(key cache.Key) string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	u := base + "/sites/" + url.PathEscape(key.SiteID) + "/pages/" + key.PageSlug
	if key.Variant != "" {
		u += "?variant=" + url.QueryEscape(key.Variant)
	}
	return u
}
