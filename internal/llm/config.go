// Package llm provides chat-completion clients for the model providers
// used by the recommendation pipeline, plus endpoint configuration and
// credential resolution.
package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider identifies an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderDeepSeek is the DeepSeek chat API
	ProviderDeepSeek Provider = "deepseek"
	// ProviderOpenAI is the OpenAI chat API
	ProviderOpenAI Provider = "openai"
	// ProviderQwen is the Alibaba Qwen (DashScope) chat API
	ProviderQwen Provider = "qwen"
	// ProviderGemini is the Google Gemini API
	ProviderGemini Provider = "gemini"
)

// ValidProvider reports whether p names a supported provider
func ValidProvider(p Provider) bool {
	switch p {
	case ProviderDeepSeek, ProviderOpenAI, ProviderQwen, ProviderGemini:
		return true
	}
	return false
}

// DefaultCallTimeout bounds a single chat-completion HTTP call
const DefaultCallTimeout = 45 * time.Second

// EndpointConfig describes one chat-completion endpoint. Proxy
// endpoints forward through a relay that holds the real credential;
// direct endpoints call the provider API with a Bearer token.
type EndpointConfig struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	URL         string   `json:"url"`
	Proxy       bool     `json:"proxy"`
	Model       string   `json:"model"`
	MaxTokens   int      `json:"maxTokens"`
	Temperature float64  `json:"temperature"`
}

// DefaultEndpoints returns the built-in endpoint set for a provider:
// a primary endpoint plus two alternates used for batched scoring.
func DefaultEndpoints(provider Provider) []EndpointConfig {
	base := EndpointConfig{
		Provider:  provider,
		Proxy:     true,
		MaxTokens: 4000,
	}
	switch provider {
	case ProviderOpenAI:
		base.URL = "https://api.openai.com/v1/chat/completions"
		base.Model = "gpt-4o-mini"
		base.Proxy = false
	case ProviderQwen:
		base.URL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
		base.Model = "qwen-plus"
		base.Proxy = false
	default:
		base.URL = "https://api.deepseek.com/v1/chat/completions"
		base.Model = "deepseek-chat"
		base.Proxy = false
	}

	endpoints := make([]EndpointConfig, 3)
	for i, id := range []string{"default", "api2", "api3"} {
		ep := base
		ep.ID = id
		endpoints[i] = ep
	}
	return endpoints
}

// CredentialResolver supplies an API key for a provider and endpoint
type CredentialResolver interface {
	Resolve(provider Provider, endpointID string) (string, bool)
}

// StaticCredentials resolves keys from an in-memory map keyed by
// "provider" or "provider/endpointID".
type StaticCredentials map[string]string

// Resolve implements CredentialResolver
func (s StaticCredentials) Resolve(provider Provider, endpointID string) (string, bool) {
	if key, ok := s[string(provider)+"/"+endpointID]; ok && key != "" {
		return key, true
	}
	if key, ok := s[string(provider)]; ok && key != "" {
		return key, true
	}
	return "", false
}

// EnvCredentials resolves keys from environment variables. The primary
// endpoint reads PROVIDER_API_KEY; alternates read numbered variants
// (DEEPSEEK_API_KEY_2 for endpoint api2, and so on).
type EnvCredentials struct{}

// Resolve implements CredentialResolver
func (EnvCredentials) Resolve(provider Provider, endpointID string) (string, bool) {
	name := envVarName(provider, endpointID)
	if key := os.Getenv(name); key != "" {
		return key, true
	}
	// alternates fall back to the primary key
	if endpointID != "default" {
		if key := os.Getenv(envVarName(provider, "default")); key != "" {
			return key, true
		}
	}
	return "", false
}

func envVarName(provider Provider, endpointID string) string {
	base := map[Provider]string{
		ProviderDeepSeek: "DEEPSEEK_API_KEY",
		ProviderOpenAI:   "OPENAI_API_KEY",
		ProviderQwen:     "QWEN_API_KEY",
		ProviderGemini:   "GEMINI_API_KEY",
	}[provider]
	switch endpointID {
	case "", "default":
		return base
	case "api2":
		return base + "_2"
	case "api3":
		return base + "_3"
	default:
		return base
	}
}

// ChainResolver tries each resolver in order and returns the first hit.
// Construct it caller-supplied first, then configured, then environment,
// so an explicit key always wins.
type ChainResolver []CredentialResolver

// Resolve implements CredentialResolver
func (c ChainResolver) Resolve(provider Provider, endpointID string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if key, ok := r.Resolve(provider, endpointID); ok {
			return key, true
		}
	}
	return "", false
}

// ResolveCredential builds the standard resolution chain: the
// caller-supplied key, then static config, then environment variables.
func ResolveCredential(userKey string, static StaticCredentials, provider Provider, endpointID string) (string, error) {
	if userKey != "" {
		return userKey, nil
	}
	chain := ChainResolver{static, EnvCredentials{}}
	if key, ok := chain.Resolve(provider, endpointID); ok {
		return key, nil
	}
	return "", &ConfigurationError{
		Message: fmt.Sprintf("no API key available for provider %s endpoint %s", provider, endpointID),
	}
}
