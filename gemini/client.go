// Package gemini implements jsaudit.ModelClient using Google Gemini.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// Client wraps the Gemini genai.Client.
type Client struct {
	client *genai.Client
}

// NewClient creates a new Client with the given API key. A non-nil
// httpClient carries proxy routing for every call made by this Client.
func NewClient(ctx context.Context, apiKey string, httpClient *http.Client) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, err
	}
	return &Client{client: client}, nil
}

// Close is a no-op for the genai SDK (no cleanup needed).
func (c *Client) Close() error {
	return nil
}

// GenerateContent implements GenerativeClient by delegating to the genai.Client.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []*Content, config *GenerateContentConfig) (*GenerateContentResponse, error) {
	genaiContents := make([]*genai.Content, len(contents))
	for i, content := range contents {
		parts := make([]*genai.Part, len(content.Parts))
		for j, part := range content.Parts {
			parts[j] = &genai.Part{Text: part.Text}
		}
		genaiContents[i] = &genai.Content{Role: genai.RoleUser, Parts: parts}
	}

	genaiConfig := &genai.GenerateContentConfig{}
	if config != nil {
		genaiConfig.ResponseMIMEType = config.ResponseMIMEType
		genaiConfig.Temperature = config.Temperature
		if config.SystemInstruction != nil {
			parts := make([]*genai.Part, len(config.SystemInstruction.Parts))
			for i, part := range config.SystemInstruction.Parts {
				parts[i] = &genai.Part{Text: part.Text}
			}
			genaiConfig.SystemInstruction = &genai.Content{Parts: parts}
		}
		if config.MaxOutputTokens > 0 {
			genaiConfig.MaxOutputTokens = config.MaxOutputTokens
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, model, genaiContents, genaiConfig)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	return &GenerateContentResponse{Text: result.Text()}, nil
}

// wrapAPIError converts genai.APIError to our APIError type for retry handling.
func wrapAPIError(err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			StatusCode: apiErr.Code,
			Message:    fmt.Sprintf("gemini API error (HTTP %d): %s", apiErr.Code, apiErr.Message),
		}
	}
	return err
}

// Compile-time check that Client implements GenerativeClient.
var _ GenerativeClient = (*Client)(nil)
