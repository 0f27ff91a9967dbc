package llm

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_API_URL", "LLM_MAX_TOKENS", "LLM_TIMEOUT", "LLM_MAX_RETRIES"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Timeout = %s, want 60s", cfg.Timeout)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
	}
}

func TestNewProviderSwitch(t *testing.T) {
	for _, name := range []string{"openai", "Anthropic", "ollama"} {
		if _, err := NewProvider(Config{Provider: name}); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
	if _, err := NewProvider(Config{Provider: "mystery"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
