package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/fwojciec/jsaudit"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// Compile-time interface verification.
var _ jsaudit.Fetcher = (*Fetcher)(nil)

const (
	// DefaultMaxBytes caps a fetched body at 10 MiB.
	DefaultMaxBytes = 10 << 20
	// DefaultCacheSize is the number of bodies kept in memory.
	DefaultCacheSize = 256
	// DefaultDelay spaces consecutive requests.
	DefaultDelay = 250 * time.Millisecond
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
)

// DefaultUserAgents are rotated across requests.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// ErrTooLarge is returned when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("web: %s returned HTTP %d", e.URL, e.StatusCode)
}

// Fetcher retrieves scripts and pages over HTTP.
type Fetcher struct {
	client     *http.Client
	userAgents []string
	next       atomic.Uint64
	limiter    *rate.Limiter
	maxBytes   int64
	cache      *lru.Cache[string, string]
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*fetcherOptions)

type fetcherOptions struct {
	client     *http.Client
	userAgents []string
	delay      time.Duration
	maxBytes   int64
	cacheSize  int
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(o *fetcherOptions) { o.client = c }
}

// WithUserAgents sets the User-Agent rotation list.
func WithUserAgents(uas []string) FetcherOption {
	return func(o *fetcherOptions) {
		if len(uas) > 0 {
			o.userAgents = uas
		}
	}
}

// WithDelay sets the minimum spacing between requests. Zero disables it.
func WithDelay(d time.Duration) FetcherOption {
	return func(o *fetcherOptions) { o.delay = d }
}

// WithMaxBytes caps response bodies.
func WithMaxBytes(n int64) FetcherOption {
	return func(o *fetcherOptions) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithCacheSize sets how many bodies are cached.
func WithCacheSize(n int) FetcherOption {
	return func(o *fetcherOptions) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) (*Fetcher, error) {
	o := fetcherOptions{
		userAgents: DefaultUserAgents,
		delay:      DefaultDelay,
		maxBytes:   DefaultMaxBytes,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		o.client = &http.Client{Timeout: DefaultTimeout}
	}

	cache, err := lru.New[string, string](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("web: creating cache: %w", err)
	}

	f := &Fetcher{
		client:     o.client,
		userAgents: o.userAgents,
		maxBytes:   o.maxBytes,
		cache:      cache,
	}
	if o.delay > 0 {
		f.limiter = rate.NewLimiter(rate.Every(o.delay), 1)
	}
	return f, nil
}

// Fetch returns the body of rawURL, served from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*jsaudit.SourceDocument, error) {
	if body, ok := f.cache.Get(rawURL); ok {
		return &jsaudit.SourceDocument{Origin: rawURL, Content: body}, nil
	}

	resp, err := f.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("web: reading %s: %w", rawURL, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("web: %s: %w (limit %d bytes)", rawURL, ErrTooLarge, f.maxBytes)
	}

	body := string(data)
	f.cache.Add(rawURL, body)
	return &jsaudit.SourceDocument{Origin: rawURL, Content: body}, nil
}

// Size returns the Content-Length reported by a HEAD request, or -1.
func (f *Fetcher) Size(ctx context.Context, rawURL string) (int64, error) {
	if body, ok := f.cache.Get(rawURL); ok {
		return int64(len(body)), nil
	}

	resp, err := f.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return -1, err
	}
	resp.Body.Close()

	if resp.ContentLength < 0 {
		return -1, nil
	}
	return resp.ContentLength, nil
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("web: building request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if ref := referer(req.URL); ref != "" {
		req.Header.Set("Referer", ref)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web: %s %s: %w", method, rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (f *Fetcher) userAgent() string {
	n := f.next.Add(1) - 1
	return f.userAgents[n%uint64(len(f.userAgents))]
}

func referer(u *url.URL) string {
	if u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
