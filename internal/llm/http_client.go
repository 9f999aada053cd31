package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// retry policy for transient transport failures
const (
	maxAttempts   = 3
	retryInterval = time.Second
)

// HTTPClient implements Client for OpenAI-dialect chat endpoints
// (DeepSeek, OpenAI, Qwen), in either direct or proxy mode.
type HTTPClient struct {
	endpoint EndpointConfig
	apiKey   string
	http     *http.Client
}

// NewHTTPClient builds a client for an OpenAI-dialect endpoint. The
// credential is resolved at construction so a misconfigured endpoint
// fails before the pipeline starts.
func NewHTTPClient(opts ClientOptions) (*HTTPClient, error) {
	if opts.Endpoint.URL == "" {
		return nil, &ConfigurationError{Message: "endpoint URL is required"}
	}
	apiKey, err := ResolveCredential(opts.UserKey, opts.Static, opts.Endpoint.Provider, opts.Endpoint.ID)
	if err != nil {
		return nil, err
	}

	return &HTTPClient{
		endpoint: opts.Endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: DefaultCallTimeout},
	}, nil
}

// proxyRequest is the body shape expected by relay endpoints that hold
// credentials server-side.
type proxyRequest struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	APIID       string  `json:"apiId"`
	UserAPIKey  string  `json:"userApiKey,omitempty"`
	ModelType   string  `json:"modelType"`
	MaxTokens   int     `json:"max_tokens"`
}

// chatRequest is the standard OpenAI-dialect body for direct calls
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse covers both the standard chat shape and the flat text
// shape some relays return.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
	Text string `json:"text"`
}

// Complete implements Client
func (c *HTTPClient) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if temperature < 0 {
		temperature = c.endpoint.Temperature
	}

	body, err := c.buildBody(prompt, temperature)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var text string
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewConstant(retryInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.call(ctx, body)
		var transportErr *TransportError
		if errors.As(callErr, &transportErr) && transportErr.Retryable() {
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *HTTPClient) buildBody(prompt string, temperature float64) ([]byte, error) {
	if c.endpoint.Proxy {
		return json.Marshal(proxyRequest{
			Prompt:      prompt,
			Temperature: temperature,
			APIID:       c.endpoint.ID,
			UserAPIKey:  c.apiKey,
			ModelType:   string(c.endpoint.Provider),
			MaxTokens:   c.endpoint.MaxTokens,
		})
	}
	return json.Marshal(chatRequest{
		Model:       c.endpoint.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   c.endpoint.MaxTokens,
	})
}

func (c *HTTPClient) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint.ID, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if !c.endpoint.Proxy {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint.ID, Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Endpoint: c.endpoint.ID, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{
			Endpoint:   c.endpoint.ID,
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       string(respBody),
		}
	}

	return extractCompletionText(c.endpoint.ID, respBody)
}

// extractCompletionText pulls the completion out of either response
// shape: choices[0].message.content, choices[0].text, or a flat text
// field.
func extractCompletionText(endpointID string, body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ResponseShapeError{Endpoint: endpointID, Detail: "body is not JSON: " + err.Error()}
	}

	if len(parsed.Choices) > 0 {
		if content := parsed.Choices[0].Message.Content; content != "" {
			return content, nil
		}
		if parsed.Choices[0].Text != "" {
			return parsed.Choices[0].Text, nil
		}
	}
	if parsed.Text != "" {
		return parsed.Text, nil
	}
	return "", &ResponseShapeError{Endpoint: endpointID, Detail: "no completion text in response"}
}

// Endpoint implements Client
func (c *HTTPClient) Endpoint() string { return c.endpoint.ID }

// Close implements Client
func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
