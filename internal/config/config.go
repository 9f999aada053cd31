// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jonathan/method-advisor/internal/llm"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Server
	Port int `json:"port,omitempty"` // HTTP port for serve mode

	// Model access
	Provider string            `json:"provider,omitempty"` // deepseek, openai, qwen or gemini
	APIKey   string            `json:"api_key,omitempty"`  // API key for the provider's primary endpoint
	APIKeys  map[string]string `json:"api_keys,omitempty"` // Per-endpoint keys, e.g. "deepseek/api2"

	// Catalog
	Catalog string `json:"catalog,omitempty"` // Path to an external method catalog JSON file

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed stage output
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a configuration from ADVISOR_* environment variables.
// Provider API keys are resolved separately through the credential chain.
func FromEnv() Config {
	cfg := Config{
		Provider: os.Getenv("ADVISOR_PROVIDER"),
		Catalog:  os.Getenv("ADVISOR_CATALOG"),
	}
	if port := os.Getenv("ADVISOR_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	return cfg
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	if c.Provider != "" && !llm.ValidProvider(llm.Provider(c.Provider)) {
		return fmt.Errorf("config error: unknown provider %q", c.Provider)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}
	if c.Catalog != "" {
		if _, err := os.Stat(c.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("config error: catalog file not found: %s", c.Catalog)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Catalog == "" {
		result.Catalog = defaults.Catalog
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if len(result.APIKeys) == 0 {
		result.APIKeys = defaults.APIKeys
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// Static converts the configured keys into a static credential map.
// The bare api_key maps to the provider's primary endpoint.
func (c *Config) Static() llm.StaticCredentials {
	static := make(llm.StaticCredentials, len(c.APIKeys)+1)
	for endpoint, key := range c.APIKeys {
		static[endpoint] = key
	}
	if c.APIKey != "" && c.Provider != "" {
		static[c.Provider] = c.APIKey
	}
	return static
}
