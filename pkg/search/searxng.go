package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// SearxngProvider implements the SearXNG JSON API.
type SearxngProvider struct {
	httpBackend
	apiURL string
}

// NewSearxngProvider creates a SearXNG provider.
func NewSearxngProvider(apiURL string, opts ...Option) (*SearxngProvider, error) {
	if strings.TrimSpace(apiURL) == "" {
		return nil, fmt.Errorf("searxng api url is required")
	}
	return &SearxngProvider{
		httpBackend: newHTTPBackend("searxng", opts),
		apiURL:      strings.TrimRight(apiURL, "/"),
	}, nil
}

type searxngResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searxngResponse struct {
	Results []searxngResult `json:"results"`
}

// Search executes a query against a SearXNG instance. SearXNG has no result
// count parameter; fetchable applies the limit.
func (p *SearxngProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	endpoint, err := url.Parse(p.apiURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse searxng url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", withSiteExclusions(query, opts.ExcludeDomains))
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	var decoded searxngResponse
	err = p.getJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create searxng request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}, &decoded)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(decoded.Results))
	for _, item := range decoded.Results {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Content: item.Content,
			Score:   item.Score,
		})
	}
	return fetchable(results, opts.Limit), nil
}
