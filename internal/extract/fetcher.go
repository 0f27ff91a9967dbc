package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"frameworks/herald/pkg/clients"
	"frameworks/herald/pkg/logging"
)

const (
	DefaultFetchTimeout = 10 * time.Second
	maxPageBytes        = 10 << 20
	maxErrorBodyBytes   = 1024
	emptyShellWords     = 30
	defaultUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Fetcher downloads pages for the research step.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	renderer  Renderer
	logger    logging.Logger
}

type FetcherOption func(*Fetcher)

// WithRenderer enables the headless fallback for pages that arrive as an
// empty script shell.
func WithRenderer(r Renderer) FetcherOption {
	return func(f *Fetcher) { f.renderer = r }
}

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

func WithLogger(logger logging.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

func NewFetcher(timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	f := &Fetcher{
		timeout:   timeout,
		userAgent: defaultUserAgent,
		logger:    logging.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = clients.NewHTTPClient(timeout)
	}
	return f
}

// Fetch returns the page HTML. Non-2xx responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("fetch %s: unexpected status %s: %s", pageURL, resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	page := string(data)

	if f.renderer != nil && wordCount(page) < emptyShellWords {
		rendered, err := f.renderer.Render(ctx, pageURL)
		if err != nil {
			f.logger.WithError(err).WithField("url", pageURL).Warn("Headless render failed, using static HTML")
			return page, nil
		}
		return rendered, nil
	}
	return page, nil
}
