package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBraveSearch(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "brave-key" {
			errCh <- fmt.Errorf("missing brave api key")
			return
		}
		if got := r.URL.Query().Get("q"); got != "streaming -site:pinterest.com" {
			errCh <- fmt.Errorf("unexpected query %q", got)
			return
		}
		if got := r.URL.Query().Get("count"); got != "3" {
			errCh <- fmt.Errorf("expected count 3, got %q", got)
			return
		}
		resp := braveResponse{}
		resp.Web.Results = []braveResult{
			{Title: "Brave Result", URL: "https://brave.com", Description: "snippet"},
			{Title: "Second", URL: "https://brave.com/2", Description: "more"},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			errCh <- fmt.Errorf("encode response: %w", err)
		}
	}))
	defer server.Close()

	provider, err := NewBraveProvider("brave-key", server.URL)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	results, err := provider.Search(context.Background(), "streaming", SearchOptions{Limit: 3, ExcludeDomains: []string{"pinterest.com"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("handler error: %v", err)
	default:
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected rank-ordered scores, got %v then %v", results[0].Score, results[1].Score)
	}
}
