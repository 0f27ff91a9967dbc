package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/publisher"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/search"
)

// scriptedLLM answers by prompt kind. Unscripted kinds fail.
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	calls   []string
}

func (f *scriptedLLM) Complete(_ context.Context, messages []llm.Message, _ llm.Options) (llm.Stream, error) {
	system := ""
	if len(messages) > 0 {
		system = messages[0].Content
	}
	kind := promptKind(system)

	f.mu.Lock()
	f.calls = append(f.calls, kind)
	reply, ok := f.replies[kind]
	err := f.errs[kind]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("unscripted prompt: " + kind)
	}
	return newChunkStream(reply), nil
}

func (f *scriptedLLM) called(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == kind {
			n++
		}
	}
	return n
}

func promptKind(system string) string {
	switch {
	case system == classifierPrompt:
		return "classify"
	case system == clarifierPrompt:
		return "clarify"
	case system == queryPrompt:
		return "query"
	case strings.HasPrefix(system, "Write a detailed prompt"):
		return "media"
	case strings.HasPrefix(system, "You write "):
		return "draft"
	case system == qualityPrompt:
		return "quality"
	case system == finalizePrompt:
		return "finalize"
	default:
		return "other"
	}
}

// chunkStream yields the reply split on spaces so streaming callers see
// several deltas.
type chunkStream struct {
	chunks []string
}

func newChunkStream(text string) *chunkStream {
	parts := strings.SplitAfter(text, " ")
	return &chunkStream{chunks: parts}
}

func (s *chunkStream) Recv() (llm.Chunk, error) {
	if len(s.chunks) == 0 {
		return llm.Chunk{}, io.EOF
	}
	next := s.chunks[0]
	s.chunks = s.chunks[1:]
	return llm.Chunk{Content: next}, nil
}

func (s *chunkStream) Close() error { return nil }

type fakeSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (f *fakeSearch) Search(_ context.Context, query string, _ search.SearchOptions) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (string, error) {
	if err := f.errs[pageURL]; err != nil {
		return "", err
	}
	page, ok := f.pages[pageURL]
	if !ok {
		return "", errors.New("not found")
	}
	return page, nil
}

type recordingPoster struct {
	mu       sync.Mutex
	requests []publisher.Request
	result   publisher.Result
}

func (p *recordingPoster) Publish(_ context.Context, req publisher.Request) publisher.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.result
}

type recordingReporter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recordingReporter) Emit(_ context.Context, ev progress.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recordingReporter) Content(ctx context.Context, text string) {
	if text != "" {
		r.Emit(ctx, progress.Content(text))
	}
}

// types lists event types with consecutive content events collapsed.
func (r *recordingReporter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if ev.Type == progress.TypeContent && len(out) > 0 && out[len(out)-1] == progress.TypeContent {
			continue
		}
		out = append(out, ev.Type)
	}
	return out
}

func (r *recordingReporter) content() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var b strings.Builder
	for _, ev := range r.events {
		if ev.Type == progress.TypeContent {
			b.WriteString(ev.Content)
		}
	}
	return b.String()
}

func articlePage(sentences ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><nav>Home</nav><article>")
	for _, s := range sentences {
		b.WriteString("<p>" + s + "</p>\n")
	}
	b.WriteString("</article></body></html>")
	return b.String()
}
