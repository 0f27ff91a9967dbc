package search

import (
	"fmt"
	"strings"
	"time"

	"frameworks/herald/pkg/config"
)

const (
	providerTavily  = "tavily"
	providerBrave   = "brave"
	providerSearxng = "searxng"
)

// Config selects the research backend. SEARCH_PROVIDER=none disables search;
// the research step then records that it was skipped.
type Config struct {
	Provider   string
	APIKey     string
	APIURL     string
	Timeout    time.Duration
	MaxRetries int
}

func LoadConfig() Config {
	return Config{
		Provider:   config.GetEnv("SEARCH_PROVIDER", providerTavily),
		APIKey:     config.GetEnv("SEARCH_API_KEY", ""),
		APIURL:     config.GetEnv("SEARCH_API_URL", ""),
		Timeout:    config.GetEnvDuration("SEARCH_TIMEOUT", defaultSearchTimeout),
		MaxRetries: config.GetEnvInt("SEARCH_MAX_RETRIES", defaultMaxRetries),
	}
}

// Enabled reports whether a provider is configured at all.
func (c Config) Enabled() bool {
	p := strings.ToLower(strings.TrimSpace(c.Provider))
	return p != "" && p != "none"
}

func NewProvider(cfg Config) (Provider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("search provider disabled")
	}
	opts := []Option{WithTimeout(cfg.Timeout), WithMaxRetries(cfg.MaxRetries)}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case providerTavily:
		return NewTavilyProvider(cfg.APIKey, cfg.APIURL, opts...)
	case providerBrave:
		return NewBraveProvider(cfg.APIKey, cfg.APIURL, opts...)
	case providerSearxng:
		return NewSearxngProvider(cfg.APIURL, opts...)
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Provider)
	}
}
