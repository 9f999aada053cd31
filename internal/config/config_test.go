package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"provider": "deepseek",
		"api_key": "sk-primary",
		"api_keys": {"deepseek/api2": "sk-two"},
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "deepseek", cfg.Provider)
	assert.Equal(t, "sk-primary", cfg.APIKey)
	assert.Equal(t, "sk-two", cfg.APIKeys["deepseek/api2"])
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "{not json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty is valid", Config{}, false},
		{"known provider", Config{Provider: "openai"}, false},
		{"unknown provider", Config{Provider: "watson"}, true},
		{"negative port", Config{Port: -1}, true},
		{"port too large", Config{Port: 70000}, true},
		{"missing catalog file", Config{Catalog: "/nonexistent/catalog.json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_CatalogExists(t *testing.T) {
	path := writeConfig(t, "[]")
	cfg := Config{Catalog: path}
	assert.NoError(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Provider: "qwen"}
	defaults := Config{
		Provider: "deepseek",
		APIKey:   "sk-default",
		Port:     9090,
		APIKeys:  map[string]string{"qwen": "sk-map"},
	}

	merged := cfg.MergeWithDefaults(defaults)

	assert.Equal(t, "qwen", merged.Provider, "explicit value wins")
	assert.Equal(t, "sk-default", merged.APIKey)
	assert.Equal(t, 9090, merged.Port)
	assert.Equal(t, "sk-map", merged.APIKeys["qwen"])
}

func TestFromEnv(t *testing.T) {
	t.Setenv("ADVISOR_PROVIDER", "gemini")
	t.Setenv("ADVISOR_PORT", "3000")

	cfg := FromEnv()
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 3000, cfg.Port)
}

func TestFromEnv_BadPortIgnored(t *testing.T) {
	t.Setenv("ADVISOR_PORT", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, 0, cfg.Port)
}

func TestStatic(t *testing.T) {
	cfg := Config{
		Provider: "deepseek",
		APIKey:   "sk-primary",
		APIKeys:  map[string]string{"deepseek/api2": "sk-two"},
	}

	static := cfg.Static()
	assert.Equal(t, "sk-primary", static["deepseek"])
	assert.Equal(t, "sk-two", static["deepseek/api2"])
}
