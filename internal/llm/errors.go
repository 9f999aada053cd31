package llm

import "fmt"

// ConfigurationError reports a client that cannot be constructed or
// used because required configuration is missing.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "llm configuration error: " + e.Message
}

// TransportError reports a failed HTTP call to a chat endpoint
type TransportError struct {
	Endpoint   string
	StatusCode int
	StatusText string
	Body       string
	Cause      error
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm call to %s failed: %v", e.Endpoint, e.Cause)
	}
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("llm call to %s failed: %d %s: %s", e.Endpoint, e.StatusCode, e.StatusText, body)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is worth another attempt:
// network errors, rate limits, and server-side errors are; client
// errors are not.
func (e *TransportError) Retryable() bool {
	if e.Cause != nil {
		return true
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ResponseShapeError reports a 2xx response whose body carried no
// usable completion text.
type ResponseShapeError struct {
	Endpoint string
	Detail   string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("llm response from %s has unexpected shape: %s", e.Endpoint, e.Detail)
}
