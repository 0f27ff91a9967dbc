package llm

import (
	"context"
	"net"
	"net/url"
	"os"
	"strings"
)

const defaultOllamaHost = "localhost:11434"

// OllamaProvider talks to Ollama's OpenAI-compatible endpoint. Without an
// explicit APIURL it follows OLLAMA_HOST the way the ollama CLI does.
type OllamaProvider struct {
	openai *OpenAIProvider
}

func NewOllamaProvider(cfg Config) *OllamaProvider {
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = ollamaBaseURL(os.Getenv("OLLAMA_HOST"))
	}
	return &OllamaProvider{openai: NewOpenAIProvider(cfg)}
}

// ollamaBaseURL turns an OLLAMA_HOST value ("host", "host:port" or a full
// URL) into the /v1 base URL.
func ollamaBaseURL(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		host = defaultOllamaHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil || u.Host == "" {
		return "http://" + defaultOllamaHost + "/v1"
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), "11434")
	}
	u.Path = "/v1"
	return u.String()
}

func (p *OllamaProvider) Complete(ctx context.Context, messages []Message, opts Options) (Stream, error) {
	return p.openai.Complete(ctx, messages, opts)
}
