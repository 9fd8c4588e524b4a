package telex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public FlyByWire API
	DefaultBaseURL = "https://api.flybywiresim.com"

	// DefaultTimeout for API requests
	DefaultTimeout = 10 * time.Second

	// DefaultPageSize is the number of connections requested per page
	DefaultPageSize = 100
)

// ErrNotFound is returned by GetConnection when the id is unknown.
var ErrNotFound = errors.New("connection not found")

// Client implements ConnectionSource against the TELEX HTTP API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	pageSize    int
	bounds      *Bounds
}

// Config contains configuration for the TELEX client.
type Config struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration

	// RequestsPerSecond limits page requests; 0 disables limiting
	RequestsPerSecond float64

	// Bounds optionally restricts FetchAllConnections to a viewport
	Bounds *Bounds
}

// NewClient creates a new TELEX API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(limit, 1),
		pageSize:    cfg.PageSize,
		bounds:      cfg.Bounds,
	}
}

// FetchAllConnections walks the paginated listing until every connection
// reported by the API has been collected.
func (c *Client) FetchAllConnections(ctx context.Context) ([]Connection, error) {
	var all []Connection

	for skip := 0; ; {
		page, err := c.GetConnections(ctx, skip, c.pageSize, c.bounds)
		if err != nil {
			return nil, err
		}

		all = append(all, page.Results...)
		skip += len(page.Results)

		// The API may return fewer rows than asked for; only an empty page
		// ends the walk early.
		if len(page.Results) == 0 || skip >= page.Total {
			break
		}
	}

	if all == nil {
		all = []Connection{}
	}
	return all, nil
}

// GetConnections fetches a single page of connections.
// Uses the /txcxn?skip=&take= endpoint with optional viewport bounds.
func (c *Client) GetConnections(ctx context.Context, skip, take int, bounds *Bounds) (*Page, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("take", strconv.Itoa(take))
	if bounds != nil {
		q.Set("north", strconv.FormatFloat(bounds.North, 'f', -1, 64))
		q.Set("east", strconv.FormatFloat(bounds.East, 'f', -1, 64))
		q.Set("south", strconv.FormatFloat(bounds.South, 'f', -1, 64))
		q.Set("west", strconv.FormatFloat(bounds.West, 'f', -1, 64))
	}

	var page Page
	if err := c.get(ctx, "/txcxn?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetConnection fetches one connection by id.
// Returns ErrNotFound if the API does not know the id.
func (c *Client) GetConnection(ctx context.Context, id string) (*Connection, error) {
	var conn Connection
	if err := c.get(ctx, "/txcxn/"+url.PathEscape(id), &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// Close cleanly shuts down the client.
// For TELEX this is a no-op as there are no persistent connections.
func (c *Client) Close() error {
	return nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch connections: %w", err)
	}
	defer resp.Body.Close()

	// Check for rate limit (HTTP 429)
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "Rate limit exceeded",
			Headers:    extractRateLimitHeaders(resp.Header),
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse API response: %w", err)
	}
	return nil
}

// RateLimitError represents an HTTP 429 rate limit error with retry information.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Headers    RateLimitHeaders
}

// RateLimitHeaders contains rate limit information from response headers.
type RateLimitHeaders struct {
	Limit     int       // X-Rate-Limit-Limit: Maximum requests allowed
	Remaining int       // X-Rate-Limit-Remaining: Requests remaining in current window
	Reset     time.Time // X-Rate-Limit-Reset: When the rate limit resets
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// IsRateLimitError checks if an error is, or wraps, a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter extracts the Retry-After header value.
// Supports both delay-seconds and HTTP-date formats; returns 0 when absent.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}

// extractRateLimitHeaders reads the X-Rate-Limit-* (or X-RateLimit-*) headers.
// Missing values are reported as -1.
func extractRateLimitHeaders(headers http.Header) RateLimitHeaders {
	rlh := RateLimitHeaders{
		Limit:     -1,
		Remaining: -1,
	}

	if v, ok := firstInt(headers, "X-Rate-Limit-Limit", "X-RateLimit-Limit"); ok {
		rlh.Limit = v
	}
	if v, ok := firstInt(headers, "X-Rate-Limit-Remaining", "X-RateLimit-Remaining"); ok {
		rlh.Remaining = v
	}
	if v, ok := firstInt(headers, "X-Rate-Limit-Reset", "X-RateLimit-Reset"); ok {
		rlh.Reset = time.Unix(int64(v), 0)
	}

	return rlh
}

func firstInt(headers http.Header, names ...string) (int, bool) {
	for _, name := range names {
		if raw := headers.Get(name); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}
