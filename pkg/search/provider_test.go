package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchableDropsUnusableAndDuplicateURLs(t *testing.T) {
	t.Parallel()
	in := []Result{
		{Title: " A ", URL: "https://a.example/post", Content: " first "},
		{Title: "dup", URL: "https://a.example/post"},
		{Title: "relative", URL: "/local/path"},
		{Title: "mail", URL: "mailto:x@example.com"},
		{Title: "B", URL: " http://b.example/ "},
		{Title: "C", URL: "https://c.example"},
	}
	out := fetchable(in, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(out), out)
	}
	if out[0].Title != "A" || out[0].Content != "first" {
		t.Fatalf("expected trimmed first result, got %+v", out[0])
	}
	if out[1].URL != "http://b.example/" {
		t.Fatalf("expected trimmed second url, got %q", out[1].URL)
	}

	if all := fetchable(in, 0); len(all) != 3 {
		t.Fatalf("expected 3 fetchable results without limit, got %d", len(all))
	}
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()
	for provider, want := range map[string]bool{"tavily": true, " Brave ": true, "none": false, "": false, "NONE": false} {
		if got := (Config{Provider: provider}).Enabled(); got != want {
			t.Fatalf("Enabled(%q) = %v, want %v", provider, got, want)
		}
	}
	if _, err := NewProvider(Config{Provider: "none"}); err == nil {
		t.Fatal("expected disabled provider to error")
	}
	if _, err := NewProvider(Config{Provider: "bing"}); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestWithTimeoutBoundsSlowBackend(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		_ = json.NewEncoder(w).Encode(searxngResponse{})
	}))
	defer server.Close()
	defer close(release)

	provider, err := NewSearxngProvider(server.URL, WithTimeout(50*time.Millisecond), WithMaxRetries(0))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	start := time.Now()
	if _, err := provider.Search(context.Background(), "slow", SearchOptions{}); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout not applied, took %v", elapsed)
	}
}
