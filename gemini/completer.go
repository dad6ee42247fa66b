package gemini

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/jsaudit"
)

// Compile-time interface verification.
var _ jsaudit.ModelClient = (*Completer)(nil)

// DefaultTimeout is the default timeout for a single completion.
const DefaultTimeout = 120 * time.Second

// DefaultTemperature keeps security findings consistent between runs.
const DefaultTemperature = float32(0.2)

// SystemInstruction frames every analysis prompt.
const SystemInstruction = `You are a senior application security engineer reviewing client-side JavaScript collected during an authorized penetration test. Report concrete, verifiable findings with code excerpts. Do not invent code that is not present in the input.`

// Completer implements jsaudit.ModelClient using Google Gemini.
type Completer struct {
	client      GenerativeClient
	model       string
	timeout     time.Duration
	temperature float32
}

// CompleterOption configures a Completer.
type CompleterOption func(*Completer)

// WithTimeout sets the timeout for API calls.
func WithTimeout(d time.Duration) CompleterOption {
	return func(c *Completer) {
		c.timeout = d
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) CompleterOption {
	return func(c *Completer) {
		c.temperature = t
	}
}

// NewCompleter creates a new Completer. An empty model selects DefaultModel.
func NewCompleter(client GenerativeClient, model string, opts ...CompleterOption) *Completer {
	if model == "" {
		model = DefaultModel
	}
	c := &Completer{
		client:      client,
		model:       model,
		timeout:     DefaultTimeout,
		temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name used for completions.
func (c *Completer) Model() string {
	return c.model
}

// Complete sends prompt to Gemini and returns the response text.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	contents := []*Content{{
		Parts: []*Part{{Text: prompt}},
	}}

	resp, err := c.client.GenerateContent(ctx, c.model, contents, BuildConfig(c.temperature))
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", errors.New("gemini: returned nil response")
	}
	if resp.Text == "" {
		return "", errors.New("gemini: returned empty response")
	}

	return resp.Text, nil
}

// BuildConfig returns the GenerateContentConfig for analysis calls.
func BuildConfig(temperature float32) *GenerateContentConfig {
	temp := temperature
	return &GenerateContentConfig{
		SystemInstruction: &Content{
			Parts: []*Part{{Text: SystemInstruction}},
		},
		Temperature: &temp,
	}
}
