package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LEAD_PROVIDER", "LEAD_MODEL", "LEAD_BASE_URL", "LEAD_API_KEY", "LEAD_REQUEST_TIMEOUT",
	"LEAD_MAX_ATTEMPTS", "LEAD_BASE_DELAY", "LEAD_MAX_DELAY", "LEAD_WORKERS", "LEAD_ITEM_TIMEOUT",
	"LEAD_RATE_LIMIT_RPS", "LEAD_FAIL_FAST", "LEAD_LOG_LEVEL", "LEAD_LOG_FORMAT",
	"OPENAI_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_EXTRACTION_MODEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider.Name)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "console", cfg.Log.Format)

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.BaseDelay)
}

func TestLoad_MissingFilesAreSkipped(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
}

func TestLoad_YAMLThenDotenvThenEnv(t *testing.T) {
	clearEnv(t)

	yamlPath := writeFile(t, "lead.yaml", `
provider:
  name: gemini
  model: gemini-2.0-flash
  timeout: 10s
retry:
  max_attempts: 5
  base_delay: 250ms
  max_delay: 2s
batch:
  workers: 8
  rate_limit_rps: 2.5
log:
  level: debug
  format: json
`)
	envPath := writeFile(t, ".env", "GEMINI_API_KEY=from-dotenv\nLEAD_WORKERS=6\n")
	t.Setenv("LEAD_WORKERS", "12")
	t.Setenv("LEAD_FAIL_FAST", "true")

	cfg, err := Load(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Provider.Name)
	assert.Equal(t, "gemini-2.0-flash", cfg.Provider.Model)
	assert.Equal(t, "from-dotenv", cfg.Provider.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 12, cfg.Batch.Workers)
	assert.Equal(t, 2.5, cfg.Batch.RateLimitRPS)
	assert.True(t, cfg.Batch.FailFast)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_ProviderKeys(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_EXTRACTION_MODEL", "gpt-4.1-mini")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.Provider.APIKey)
	assert.Equal(t, "gpt-4.1-mini", cfg.Provider.Model)

	t.Setenv("LEAD_PROVIDER", "Anthropic")
	cfg, err = Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider.Name)
	assert.Equal(t, "sk-ant", cfg.Provider.APIKey)
	assert.Empty(t, cfg.Provider.Model, "OPENAI_EXTRACTION_MODEL only applies to openai")

	t.Setenv("LEAD_API_KEY", "generic")
	t.Setenv("LEAD_MODEL", "claude-x")
	cfg, err = Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.Provider.APIKey)
	assert.Equal(t, "claude-x", cfg.Provider.Model)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{name: "bad int", key: "LEAD_WORKERS", val: "many", want: `invalid LEAD_WORKERS="many"`},
		{name: "bad duration", key: "LEAD_BASE_DELAY", val: "1", want: `invalid LEAD_BASE_DELAY="1"`},
		{name: "bad bool", key: "LEAD_FAIL_FAST", val: "sure", want: `invalid LEAD_FAIL_FAST="sure"`},
		{name: "bad float", key: "LEAD_RATE_LIMIT_RPS", val: "fast", want: `invalid LEAD_RATE_LIMIT_RPS="fast"`},
		{name: "zero attempts", key: "LEAD_MAX_ATTEMPTS", val: "0", want: "retry.max_attempts must be >= 1"},
		{name: "zero workers", key: "LEAD_WORKERS", val: "0", want: "batch.workers must be >= 1"},
		{name: "negative delay", key: "LEAD_MAX_DELAY", val: "-1s", want: "must not be negative"},
		{name: "bad format", key: "LEAD_LOG_FORMAT", val: "xml", want: "log.format must be json or console"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	p := writeFile(t, "lead.yaml", "retry: [oops")
	_, err := Load(p, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestConfig_APIKeyFor(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEAD_API_KEY", "generic")
	envPath := writeFile(t, ".env", "GEMINI_API_KEY=gem\n")

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.APIKeyFor("openai"))
	assert.Equal(t, "gem", cfg.APIKeyFor("Gemini"))
	assert.Empty(t, cfg.APIKeyFor("anthropic"))
	assert.Empty(t, cfg.APIKeyFor("stub"))
}
