// Package throttle wraps a jsaudit.ModelClient with client-side rate
// limiting and retry of transient provider failures.
package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fwojciec/jsaudit"
	"golang.org/x/time/rate"
)

// Compile-time interface verification.
var _ jsaudit.ModelClient = (*Client)(nil)

// DefaultMaxRetries is the default number of attempts per prompt.
const DefaultMaxRetries = 3

// Client rate-limits and retries calls to an underlying ModelClient.
type Client struct {
	next       jsaudit.ModelClient
	limiter    *rate.Limiter
	maxRetries int
	backoffFn  func(attempt int) time.Duration
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the total number of attempts per prompt. Values below
// one disable retries.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.maxRetries = n
	}
}

// WithRate limits calls to perSecond requests per second. Zero or negative
// disables limiting.
func WithRate(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithBackoff sets the delay before retry attempt (1-indexed).
func WithBackoff(fn func(attempt int) time.Duration) Option {
	return func(c *Client) { c.backoffFn = fn }
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New wraps next.
func New(next jsaudit.ModelClient, opts ...Option) *Client {
	c := &Client{
		next:       next,
		maxRetries: DefaultMaxRetries,
		backoffFn: func(attempt int) time.Duration {
			return time.Duration(1<<(attempt-1)) * time.Second
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete calls the wrapped client, waiting for the limiter and retrying
// errors that report themselves as temporary.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", err
			}
		} else if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := c.next.Complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Retryable(err) || ctx.Err() != nil {
			return "", err
		}

		if attempt < c.maxRetries {
			backoff := c.backoffFn(attempt)
			if c.logger != nil {
				c.logger.Warn("model call failed, retrying", "attempt", attempt, "backoff", backoff, "err", err)
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", lastErr
}

// Retryable reports whether err is a transient failure worth retrying.
// Context cancellation and deadline errors are never retried.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
