package llm

import (
	"context"
)

// Client is an abstraction over chat-completion providers
type Client interface {
	// Complete sends a prompt and returns the model's text response.
	// Temperature overrides the endpoint default when non-negative.
	Complete(ctx context.Context, prompt string, temperature float64) (string, error)
	// Endpoint returns the identifier of the endpoint this client talks to
	Endpoint() string
	// Close releases any resources held by the client
	Close() error
}

// ClientOptions carries the inputs needed to construct a client
type ClientOptions struct {
	Endpoint EndpointConfig
	// UserKey is a caller-supplied API key that overrides all other
	// credential sources.
	UserKey string
	// Static holds configured credentials consulted after UserKey
	Static StaticCredentials
}

// NewClient constructs a client for the endpoint's provider. Gemini
// uses the native SDK; every other provider speaks the OpenAI-style
// chat-completion JSON dialect over HTTP.
func NewClient(ctx context.Context, opts ClientOptions) (Client, error) {
	if opts.Endpoint.Provider == ProviderGemini {
		return NewGeminiClient(ctx, opts)
	}
	return NewHTTPClient(opts)
}
