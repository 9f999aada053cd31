package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini via the native SDK
type GeminiClient struct {
	client   *genai.Client
	endpoint EndpointConfig
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, opts ClientOptions) (*GeminiClient, error) {
	apiKey, err := ResolveCredential(opts.UserKey, opts.Static, ProviderGemini, opts.Endpoint.ID)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	endpoint := opts.Endpoint
	if endpoint.Model == "" {
		endpoint.Model = "gemini-2.5-flash"
	}

	return &GeminiClient{
		client:   client,
		endpoint: endpoint,
	}, nil
}

// Complete implements Client
func (c *GeminiClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if temperature < 0 {
		temperature = c.endpoint.Temperature
	}

	model := c.client.GenerativeModel(c.endpoint.Model)
	model.SetTemperature(float32(temperature))
	if c.endpoint.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.endpoint.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint.ID, Cause: err}
	}

	return extractGeminiText(c.endpoint.ID, resp)
}

// Endpoint implements Client
func (c *GeminiClient) Endpoint() string { return c.endpoint.ID }

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractGeminiText extracts text from a Gemini API response
func extractGeminiText(endpointID string, resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &ResponseShapeError{Endpoint: endpointID, Detail: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &ResponseShapeError{Endpoint: endpointID, Detail: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &ResponseShapeError{Endpoint: endpointID, Detail: "no text parts in response"}
	}

	return strings.Join(parts, ""), nil
}
