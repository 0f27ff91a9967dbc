package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"frameworks/herald/pkg/clients"
)

// Provider defines the interface for web search providers.
type Provider interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error)
}

// Result represents a single search result.
type Result struct {
	Title   string
	URL     string
	Content string
	Score   float64
}

// SearchOptions controls search behavior across providers.
type SearchOptions struct {
	Limit          int
	SearchDepth    string
	ExcludeDomains []string
}

const (
	defaultSearchTimeout = 15 * time.Second
	defaultMaxRetries    = 1
)

// Option tunes the HTTP side of a provider.
type Option func(*backendOptions)

type backendOptions struct {
	timeout    time.Duration
	maxRetries int
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *backendOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries sets how often a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(o *backendOptions) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// httpBackend is shared by the concrete providers.
type httpBackend struct {
	name     string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

func newHTTPBackend(name string, opts []Option) httpBackend {
	o := backendOptions{timeout: defaultSearchTimeout, maxRetries: defaultMaxRetries}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := clients.DefaultHTTPExecutorConfig("search-" + name)
	cfg.MaxRetries = o.maxRetries
	return httpBackend{
		name:     name,
		client:   clients.NewHTTPClient(o.timeout),
		executor: clients.NewHTTPExecutor(cfg),
	}
}

// getJSON sends the request built by build and decodes a 2xx JSON body into out.
func (b httpBackend) getJSON(ctx context.Context, build func(ctx context.Context) (*http.Request, error), out interface{}) error {
	resp, err := clients.Do(ctx, b.executor, b.client, nil, build)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", b.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s request failed with status %d: %s", b.name, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", b.name, err)
	}
	return nil
}

// withSiteExclusions appends -site: operators for engines that only take a
// query string.
func withSiteExclusions(query string, domains []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(query))
	for _, domain := range domains {
		domain = strings.TrimSpace(domain)
		if domain == "" {
			continue
		}
		operator := "-site:" + domain
		if strings.Contains(query, operator) {
			continue
		}
		b.WriteString(" ")
		b.WriteString(operator)
	}
	return b.String()
}

// fetchable keeps results whose URL can be downloaded: absolute http(s),
// first occurrence only, at most limit entries when limit is positive.
func fetchable(results []Result, limit int) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if limit > 0 && len(out) >= limit {
			break
		}
		r.URL = strings.TrimSpace(r.URL)
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			continue
		}
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		r.Title = strings.TrimSpace(r.Title)
		r.Content = strings.TrimSpace(r.Content)
		out = append(out, r)
	}
	return out
}
