package llm

import (
	"fmt"
	"strings"
	"time"

	"frameworks/herald/pkg/clients"
	"frameworks/herald/pkg/config"
	"frameworks/herald/pkg/logging"
)

type Config struct {
	Provider   string
	Model      string
	APIKey     string
	APIURL     string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	Logger     logging.Logger
}

// LoadConfig reads LLM_* variables.
func LoadConfig() Config {
	return Config{
		Provider:   config.GetEnv("LLM_PROVIDER", "openai"),
		Model:      config.GetEnv("LLM_MODEL", ""),
		APIKey:     config.GetEnv("LLM_API_KEY", ""),
		APIURL:     config.GetEnv("LLM_API_URL", ""),
		MaxTokens:  config.GetEnvInt("LLM_MAX_TOKENS", 0),
		Timeout:    config.GetEnvDuration("LLM_TIMEOUT", defaultRequestTimeout),
		MaxRetries: config.GetEnvInt("LLM_MAX_RETRIES", 2),
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultRequestTimeout
}

func (c Config) executorConfig(name string) clients.HTTPExecutorConfig {
	cfg := clients.DefaultHTTPExecutorConfig(name)
	cfg.MaxRetries = c.MaxRetries
	cfg.Logger = c.Logger
	return cfg
}

func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
