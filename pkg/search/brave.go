package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const defaultBraveURL = "https://api.search.brave.com/res/v1/web/search"

// BraveProvider implements the Brave Search API.
type BraveProvider struct {
	httpBackend
	apiKey string
	apiURL string
}

// NewBraveProvider creates a Brave search provider.
func NewBraveProvider(apiKey, apiURL string, opts ...Option) (*BraveProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("brave api key is required")
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultBraveURL
	}
	return &BraveProvider{
		httpBackend: newHTTPBackend("brave", opts),
		apiKey:      apiKey,
		apiURL:      apiURL,
	}, nil
}

type braveResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web struct {
		Results []braveResult `json:"results"`
	} `json:"web"`
}

// Search executes a query against the Brave Search API. Brave returns no
// relevance score, so results are scored by rank.
func (p *BraveProvider) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	endpoint, err := url.Parse(p.apiURL)
	if err != nil {
		return nil, fmt.Errorf("parse brave url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", withSiteExclusions(query, opts.ExcludeDomains))
	if opts.Limit > 0 {
		q.Set("count", strconv.Itoa(opts.Limit))
	}
	endpoint.RawQuery = q.Encode()

	var decoded braveResponse
	err = p.getJSON(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create brave request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Subscription-Token", p.apiKey)
		return req, nil
	}, &decoded)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(decoded.Web.Results))
	for i, item := range decoded.Web.Results {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.URL,
			Content: item.Description,
			Score:   1 / float64(i+1),
		})
	}
	return fetchable(results, opts.Limit), nil
}
