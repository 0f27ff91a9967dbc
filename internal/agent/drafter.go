package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"frameworks/herald/internal/platform"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
)

const draftTimeout = 90 * time.Second

const noResearch = "(no research available; rely on general knowledge and avoid specific claims)"

// Drafter writes the post body for the resolved platform.
type Drafter struct {
	LLM    llm.Provider
	Logger logging.Logger
}

func (d *Drafter) Phase() Phase { return PhaseDraft }

func (d *Drafter) Run(ctx context.Context, s State) State {
	cfg, ok := platform.ConfigFor(s.Platform)
	if !ok {
		return s.WithError("Content creation failed: unsupported platform %q", s.Platform)
	}
	if d.LLM == nil {
		return s.WithError("Content creation failed: no language model configured")
	}

	notes := noResearch
	if len(s.Evidence) > 0 {
		notes = strings.Join(s.Evidence, "\n\n---\n\n")
	}
	name := s.Platform.DisplayName()

	ctx, cancel := context.WithTimeout(ctx, draftTimeout)
	defer cancel()
	text, err := llm.Collect(ctx, d.LLM, []llm.Message{
		llm.System(fmt.Sprintf(draftPrompt, name, cfg.MaxLength, cfg.HashtagStyle, cfg.Tone, cfg.CallToAction)),
		llm.User(fmt.Sprintf(draftRequestTemplate, s.RequestText, s.Kind, notes)),
	}, llm.Options{Temperature: llm.Temperature(0.7)}, nil)
	if err != nil {
		logger(d.Logger).WithError(err).Warn("Drafting failed")
		return s.WithError("Content creation failed: %v", err)
	}

	draft := fitLength(strings.TrimSpace(text), cfg.MaxLength)
	if draft == "" {
		return s.WithError("Content creation failed: model returned no text")
	}
	s.Draft = draft
	logger(d.Logger).WithFields(logging.Fields{
		"platform": s.Platform.String(),
		"length":   len([]rune(draft)),
	}).Info("Draft created")
	return s
}

// fitLength cuts text to at most limit runes, preferring the last word
// boundary.
func fitLength(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}
