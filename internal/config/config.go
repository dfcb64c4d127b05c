// Package config loads run settings: defaults, then an optional YAML file, then an
// optional .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shpitdev/lead-contract/pkg/lead/retry"
)

type Config struct {
	Provider struct {
		Name    string        `yaml:"name"`
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"base_url"`
		APIKey  string        `yaml:"api_key"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"provider"`
	Retry struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
		MaxDelay    time.Duration `yaml:"max_delay"`
	} `yaml:"retry"`
	Batch struct {
		Workers      int           `yaml:"workers"`
		ItemTimeout  time.Duration `yaml:"item_timeout"`
		RateLimitRPS float64       `yaml:"rate_limit_rps"`
		FailFast     bool          `yaml:"fail_fast"`
	} `yaml:"batch"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	// providerKeys holds OPENAI_API_KEY, GEMINI_API_KEY and ANTHROPIC_API_KEY by provider.
	providerKeys map[string]string
}

func Default() Config {
	var cfg Config
	cfg.Provider.Name = "openai"
	cfg.Provider.Timeout = 30 * time.Second
	cfg.Retry.MaxAttempts = retry.DefaultMaxAttempts
	cfg.Retry.BaseDelay = retry.DefaultBaseDelay
	cfg.Batch.Workers = 4
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// RetryPolicy converts the retry section into the extraction policy.
func (c Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
	}
}

// Load builds a Config. Empty paths are skipped, and so are paths that do not exist.
// Non-empty process environment values win over the .env file.
func Load(path, dotenvPath string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv := map[string]string{}
	if dotenvPath != "" {
		vals, err := godotenv.Read(dotenvPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("read %s: %w", dotenvPath, err)
			}
		} else {
			dotenv = vals
		}
	}

	lookup := func(key string) string {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return errors.New("retry delays must not be negative")
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1, got %d", c.Batch.Workers)
	}
	if c.Batch.RateLimitRPS < 0 {
		return fmt.Errorf("batch.rate_limit_rps must not be negative, got %g", c.Batch.RateLimitRPS)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// APIKeyFor returns the key to use for the named provider. The configured provider
// gets Provider.APIKey; any other gets its own environment key.
func (c Config) APIKeyFor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == c.Provider.Name {
		return c.Provider.APIKey
	}
	return c.providerKeys[name]
}

// apiKeyEnv names the provider-specific key variable.
var apiKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

func applyEnv(cfg *Config, lookup func(string) string) error {
	if v := lookup("LEAD_PROVIDER"); v != "" {
		cfg.Provider.Name = strings.ToLower(v)
	}
	if v := lookup("LEAD_MODEL"); v != "" {
		cfg.Provider.Model = v
	} else if v := lookup("OPENAI_EXTRACTION_MODEL"); v != "" && cfg.Provider.Name == "openai" {
		cfg.Provider.Model = v
	}
	if v := lookup("LEAD_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	cfg.providerKeys = make(map[string]string, len(apiKeyEnv))
	for provider, key := range apiKeyEnv {
		if v := lookup(key); v != "" {
			cfg.providerKeys[provider] = v
		}
	}
	if v := lookup("LEAD_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	} else if v := cfg.providerKeys[cfg.Provider.Name]; v != "" {
		cfg.Provider.APIKey = v
	}
	if v := lookup("LEAD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := lookup("LEAD_LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}

	var err error
	if cfg.Provider.Timeout, err = envDuration(lookup, "LEAD_REQUEST_TIMEOUT", cfg.Provider.Timeout); err != nil {
		return err
	}
	if cfg.Retry.MaxAttempts, err = envInt(lookup, "LEAD_MAX_ATTEMPTS", cfg.Retry.MaxAttempts); err != nil {
		return err
	}
	if cfg.Retry.BaseDelay, err = envDuration(lookup, "LEAD_BASE_DELAY", cfg.Retry.BaseDelay); err != nil {
		return err
	}
	if cfg.Retry.MaxDelay, err = envDuration(lookup, "LEAD_MAX_DELAY", cfg.Retry.MaxDelay); err != nil {
		return err
	}
	if cfg.Batch.Workers, err = envInt(lookup, "LEAD_WORKERS", cfg.Batch.Workers); err != nil {
		return err
	}
	if cfg.Batch.ItemTimeout, err = envDuration(lookup, "LEAD_ITEM_TIMEOUT", cfg.Batch.ItemTimeout); err != nil {
		return err
	}
	if cfg.Batch.RateLimitRPS, err = envFloat(lookup, "LEAD_RATE_LIMIT_RPS", cfg.Batch.RateLimitRPS); err != nil {
		return err
	}
	if cfg.Batch.FailFast, err = envBool(lookup, "LEAD_FAIL_FAST", cfg.Batch.FailFast); err != nil {
		return err
	}
	return nil
}

func envInt(lookup func(string) string, varName string, fallback int) (int, error) {
	v := lookup(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(lookup func(string) string, varName string, fallback float64) (float64, error) {
	v := lookup(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envDuration(lookup func(string) string, varName string, fallback time.Duration) (time.Duration, error) {
	v := lookup(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(lookup func(string) string, varName string, fallback bool) (bool, error) {
	v := lookup(varName)
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
