// Package openai implements jsaudit.ModelClient for OpenAI-compatible
// chat completion endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fwojciec/jsaudit"
	goopenai "github.com/sashabaranov/go-openai"
)

// Compile-time interface verification.
var _ jsaudit.ModelClient = (*Completer)(nil)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = goopenai.GPT4oMini
	// DefaultTimeout is the default timeout for a single completion.
	DefaultTimeout = 120 * time.Second
	// DefaultTemperature keeps security findings consistent between runs.
	DefaultTemperature = float32(0.2)
)

// SystemPrompt frames every analysis prompt.
const SystemPrompt = `You are a senior application security engineer reviewing client-side JavaScript collected during an authorized penetration test. Report concrete, verifiable findings with code excerpts. Do not invent code that is not present in the input.`

// Completer implements jsaudit.ModelClient using the chat completions API.
type Completer struct {
	client      *goopenai.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// Option configures a Completer.
type Option func(*options)

type options struct {
	baseURL     string
	httpClient  *http.Client
	model       string
	timeout     time.Duration
	temperature float32
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient sets the HTTP client, typically one routed through a proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithModel sets the chat model.
func WithModel(m string) Option {
	return func(o *options) {
		if m != "" {
			o.model = m
		}
	}
}

// WithTimeout sets the timeout for API calls.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(o *options) { o.temperature = t }
}

// NewCompleter creates a Completer authenticated with apiKey.
func NewCompleter(apiKey string, opts ...Option) (*Completer, error) {
	if apiKey == "" {
		return nil, &jsaudit.ConfigError{Field: "openai.api_key", Reason: "is required"}
	}
	o := options{
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}

	return &Completer{
		client:      goopenai.NewClientWithConfig(cfg),
		model:       o.model,
		timeout:     o.timeout,
		temperature: o.temperature,
	}, nil
}

// Model returns the model name used for completions.
func (c *Completer) Model() string {
	return c.model
}

// Complete sends prompt as a single user message and returns the reply.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", wrapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: returned no choices")
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", errors.New("openai: returned empty response")
	}
	return text, nil
}

// APIError represents an error from the API with HTTP status code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Temporary reports whether retrying the call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func wrapAPIError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    fmt.Sprintf("openai API error (HTTP %d): %s", apiErr.HTTPStatusCode, apiErr.Message),
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    fmt.Sprintf("openai request error (HTTP %d): %v", reqErr.HTTPStatusCode, reqErr.Err),
		}
	}
	return fmt.Errorf("openai: %w", err)
}
