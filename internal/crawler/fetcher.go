package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default fetcher settings.
const (
	defaultUserAgent   = "wikindex/1.0 (+contact@example.com)"
	defaultTimeout     = 10 * time.Second
	defaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Fetcher downloads a page.
// Failures are returned as errors wrapping ErrFetch, ErrStatus or ErrParse;
// they never panic across the boundary.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// HTTPFetcher is a Fetcher backed by net/http.
type HTTPFetcher struct {
	// client performs the requests. Its Timeout bounds each fetch.
	client *http.Client

	// timeout overrides the client's Timeout when set.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize limits how much of each body is read.
	maxBodySize int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout. It applies to a client given
// with WithHTTPClient too, whatever the option order.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per response.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithHTTPClient replaces the underlying client. Mostly useful in tests.
// The client keeps its own Timeout unless WithTimeout is also given; the
// caller's client is never modified.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewHTTPFetcher creates an HTTPFetcher with sensible defaults.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{Timeout: defaultTimeout},
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.timeout > 0 && f.client.Timeout != f.timeout {
		client := *f.client
		client.Timeout = f.timeout
		f.client = &client
	}

	return f
}

// Fetch performs a GET request and returns the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // best effort
		return nil, &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body of %s: %w", ErrParse, pageURL, err)
	}

	return body, nil
}
