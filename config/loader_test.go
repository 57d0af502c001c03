package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"OLLAMA_URL", "SYSTEM_DIRECTIVE", "DIRECTIVE_ROLE", "DEFAULT_MODEL",
		"LOG_LEVEL", "LOG_FILE", "HIGH_PORT_MODE",
		"HTTP_PORT", "HTTPS_PORT", "DNS_PORT", "SSH_PORT",
	} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434/api", cfg.Inference.BaseURL)
	assert.Equal(t, DefaultDirective, cfg.Inference.Directive)
	assert.Equal(t, "assistant", cfg.Inference.DirectiveRole)
	assert.Equal(t, 120*time.Second, cfg.ChatTimeout())
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout())
	assert.Equal(t, 30*time.Second, cfg.HealthInterval())
	assert.Equal(t, 80, cfg.Server.HTTPPort)
	assert.Zero(t, cfg.DNS.Port)
	assert.Empty(t, cfg.DNS.Zone)
	assert.Zero(t, cfg.SSH.Port)
}

func TestLoadConfig_FileAndExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFERENCE_HOST", "gpu-box")
	t.Setenv("MODEL", "")

	path := writeFile(t, `
inference:
  base_url: http://${INFERENCE_HOST}:11434/api
  directive: "You are terse."
  directive_role: system
  default_model: ${MODEL:-llama3}
  timeout: 30s
  options:
    temperature: 0.3
server:
  http_port: 9000
dns:
  port: 5353
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://gpu-box:11434/api", cfg.Inference.BaseURL)
	assert.Equal(t, "You are terse.", cfg.Inference.Directive)
	assert.Equal(t, "system", cfg.Inference.DirectiveRole)
	assert.Equal(t, "llama3", cfg.Inference.DefaultModel)
	assert.Equal(t, 30*time.Second, cfg.ChatTimeout())
	assert.Equal(t, 0.3, cfg.Inference.Options["temperature"])
	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 5353, cfg.DNS.Port)
	// untouched sections keep defaults
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout())
	assert.Equal(t, 500, cfg.DNS.MaxChars)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_URL", "http://10.0.0.5:11434/api")
	t.Setenv("SYSTEM_DIRECTIVE", "Be brief.")
	t.Setenv("HIGH_PORT_MODE", "true")
	t.Setenv("SSH_PORT", "2022")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:11434/api", cfg.Inference.BaseURL)
	assert.Equal(t, "Be brief.", cfg.Inference.Directive)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Zero(t, cfg.Server.HTTPSPort)
	assert.Equal(t, 2022, cfg.SSH.Port)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad yaml", "inference: [", "failed to load"},
		{"bad url", "inference:\n  base_url: not-a-url\n", "invalid inference base_url"},
		{"bad role", "inference:\n  directive_role: user\n", "invalid directive_role"},
		{"bad timeout", "inference:\n  timeout: soon\n", "invalid inference.timeout"},
		{"zero timeout", "inference:\n  catalog_timeout: 0s\n", "must be positive"},
		{"negative health interval", "inference:\n  health_interval: -5s\n", "health_interval"},
		{"bad rate limit", "rate_limit:\n  enabled: true\n  burst: 0\n", "rate_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestHealthInterval_Disabled(t *testing.T) {
	cfg := Default()
	cfg.Inference.HealthInterval = ""
	assert.Zero(t, cfg.HealthInterval())

	cfg.Inference.HealthInterval = "0s"
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.HealthInterval())
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SET_VAR", "value")
	t.Setenv("EMPTY_VAR", "")

	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "value", expandEnv("${SET_VAR}"))
	assert.Equal(t, "fallback", expandEnv("${EMPTY_VAR:-fallback}"))
	assert.Equal(t, "a-value-b", expandEnv("a-${SET_VAR:-x}-b"))
}
