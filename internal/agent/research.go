package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"frameworks/herald/internal/extract"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
	"frameworks/herald/pkg/search"
)

const (
	DefaultResearchResults = 3

	maxQueryRunes = 100
	queryTimeout  = 20 * time.Second
	searchTimeout = 20 * time.Second
)

// QueryExclusions keeps documents and video sites out of the results.
const QueryExclusions = "-filetype:pdf -filetype:doc -filetype:ppt -site:youtube.com -site:pinterest.com"

// PageFetcher returns the raw HTML of a page. *extract.Fetcher satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Researcher gathers evidence: one search, then the top results fetched and
// cleaned in parallel. Failures are logged and skipped; an empty evidence set
// is a valid outcome.
type Researcher struct {
	LLM       llm.Provider
	Search    search.Provider
	Fetcher   PageFetcher
	Extractor extract.Extractor
	Results   int
	Logger    logging.Logger

	now func() time.Time
}

func (r *Researcher) Phase() Phase { return PhaseResearch }

func (r *Researcher) Run(ctx context.Context, s State) State {
	log := logger(r.Logger)
	if r.Search == nil || r.Fetcher == nil {
		return s.WithError("Research skipped: no search provider configured")
	}

	query := r.query(ctx, s)
	limit := r.Results
	if limit <= 0 {
		limit = DefaultResearchResults
	}

	searchCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	results, err := r.Search.Search(searchCtx, query, search.SearchOptions{Limit: limit})
	cancel()
	if err != nil {
		log.WithError(err).WithField("query", query).Warn("Web search failed")
		return s.WithError("Research failed: %v", err)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	blocks := r.gather(ctx, results)
	log.WithFields(logging.Fields{
		"query":   query,
		"results": len(results),
		"blocks":  len(blocks),
	}).Info("Research complete")
	researchSources.Observe(float64(len(blocks)))
	return s.WithEvidence(blocks...)
}

// gather fetches every result concurrently and returns the usable blocks in
// search order.
func (r *Researcher) gather(ctx context.Context, results []search.Result) []string {
	log := logger(r.Logger)
	slots := make([]string, len(results))

	var g errgroup.Group
	for i, result := range results {
		if strings.TrimSpace(result.URL) == "" {
			continue
		}
		g.Go(func() error {
			block, err := r.fetchBlock(ctx, result.URL)
			if err != nil {
				log.WithError(err).WithField("url", result.URL).Warn("Skipping research source")
				return nil
			}
			slots[i] = block
			return nil
		})
	}
	_ = g.Wait()

	blocks := make([]string, 0, len(slots))
	for _, block := range slots {
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func (r *Researcher) fetchBlock(ctx context.Context, pageURL string) (string, error) {
	page, err := r.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	block, ok := r.Extractor.Extract(page, pageURL)
	if !ok || strings.TrimSpace(strings.TrimPrefix(block, "Source: "+pageURL)) == "" {
		return "", fmt.Errorf("no readable content")
	}
	return block, nil
}

// query asks the model for a search query and falls back to the request
// itself. The exclusion suffix is always appended.
func (r *Researcher) query(ctx context.Context, s State) string {
	base := ""
	if r.LLM != nil {
		qctx, cancel := context.WithTimeout(ctx, queryTimeout)
		out, err := llm.Collect(qctx, r.LLM, []llm.Message{
			llm.System(queryPrompt),
			llm.User(fmt.Sprintf(queryRequestTemplate, s.RequestText, s.Platform, s.Kind, r.today())),
		}, llm.Options{Temperature: llm.Temperature(0)}, nil)
		cancel()
		if err != nil {
			logger(r.Logger).WithError(err).Warn("Search query generation failed, using request text")
		} else {
			base = cleanQuery(out)
		}
	}
	if base == "" {
		base = strings.Join(strings.Fields(s.RequestText), " ")
	}
	return strings.TrimSpace(truncateRunes(base, maxQueryRunes)) + " " + QueryExclusions
}

// cleanQuery keeps the first line without quotes or exclusion operators the
// model added itself.
func cleanQuery(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.NewReplacer(`"`, "", "`", "").Replace(line)
	line = strings.Trim(line, "' ")
	fields := strings.Fields(line)
	kept := fields[:0]
	for _, f := range fields {
		if strings.HasPrefix(f, "-filetype:") || strings.HasPrefix(f, "-site:") {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

func (r *Researcher) today() string {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	return now().Format("January 2, 2006")
}
