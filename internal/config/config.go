// Package config resolves the runtime configuration from flags, environment and config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/naka-gawa/github-timeline/internal/domain"
	"github.com/naka-gawa/github-timeline/internal/gateway"
	"github.com/naka-gawa/github-timeline/internal/storage"
	"github.com/naka-gawa/github-timeline/internal/usecase"
)

// EnvPrefix namespaces the TIMELINE_* environment variables.
const EnvPrefix = "TIMELINE"

// ErrMissingGenerationKey means the API key of the selected provider is not set.
var ErrMissingGenerationKey = errors.New("generation API key is missing")

// Config is the validated configuration of a run.
type Config struct {
	User           string        `mapstructure:"user"`
	HistoryFile    string        `mapstructure:"history-file"`
	MaxDays        int           `mapstructure:"max-days"`
	Provider       string        `mapstructure:"provider"`
	Model          string        `mapstructure:"model"`
	AuthorName     string        `mapstructure:"author-name"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
	Retries        int           `mapstructure:"retries"`
	CacheDB        string        `mapstructure:"cache-db"`
	Pushgateway    string        `mapstructure:"pushgateway"`
	GitHubBaseURL  string        `mapstructure:"github-base-url"`
	GeminiBaseURL  string        `mapstructure:"gemini-base-url"`
	OpenAIBaseURL  string        `mapstructure:"openai-base-url"`

	GitHubToken  string `mapstructure:"github-token"`
	GeminiAPIKey string `mapstructure:"gemini-api-key"`
	OpenAIAPIKey string `mapstructure:"openai-api-key"`
}

// SetDefaults registers defaults and the conventional secret variables on v.
func SetDefaults(v *viper.Viper) {
	// Every key needs a default so Unmarshal sees values that only come from the environment.
	for _, key := range []string{
		"user", "model", "author-name", "cache-db", "pushgateway",
		"github-base-url", "gemini-base-url", "openai-base-url",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("history-file", storage.DefaultHistoryPath)
	v.SetDefault("max-days", domain.DefaultMaxDays)
	v.SetDefault("provider", gateway.ProviderGemini)
	v.SetDefault("request-timeout", gateway.DefaultTimeout)
	v.SetDefault("concurrency", usecase.DefaultConcurrency)
	v.SetDefault("retries", usecase.DefaultRetries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Secrets keep the names the rest of the tooling already exports.
	_ = v.BindEnv("github-token", "GITHUB_TOKEN")
	_ = v.BindEnv("gemini-api-key", "GEMINI_API_KEY")
	_ = v.BindEnv("openai-api-key", "OPENAI_API_KEY")
}

// ReadFile loads configFile, or .timeline.yaml from the working or home directory.
// A missing default file is not an error.
func ReadFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".timeline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load unmarshals v into a Config and checks the settings every command needs.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.MaxDays <= 0 {
		return nil, fmt.Errorf("max-days must be positive, got %d", cfg.MaxDays)
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", cfg.Concurrency)
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must not be negative, got %d", cfg.Retries)
	}
	return cfg, nil
}

// RequireUser fails when no GitHub user is configured.
func (c *Config) RequireUser() error {
	if c.User == "" {
		return errors.New("a GitHub user is required (--user or TIMELINE_USER)")
	}
	return nil
}

// GenerationKey returns the API key of the selected provider.
func (c *Config) GenerationKey() (string, error) {
	var key, name string
	switch c.Provider {
	case "", gateway.ProviderGemini:
		key, name = c.GeminiAPIKey, "GEMINI_API_KEY"
	case gateway.ProviderOpenAI:
		key, name = c.OpenAIAPIKey, "OPENAI_API_KEY"
	default:
		return "", fmt.Errorf("unsupported provider %q", c.Provider)
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingGenerationKey, name)
	}
	return key, nil
}

// GenerationBaseURL returns the endpoint override of the selected provider.
func (c *Config) GenerationBaseURL() string {
	if c.Provider == gateway.ProviderOpenAI {
		return c.OpenAIBaseURL
	}
	return c.GeminiBaseURL
}
