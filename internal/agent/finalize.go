package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"frameworks/herald/internal/publisher"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
)

const finalizeTimeout = 45 * time.Second

// Finalizer writes the closing message for the user and streams it. It is
// best effort: if the model fails before producing anything, a fixed summary
// of the outcome is sent.
type Finalizer struct {
	LLM    llm.Provider
	Out    Reporter
	Logger logging.Logger
}

func (f *Finalizer) Phase() Phase { return PhaseFinalize }

func (f *Finalizer) Run(ctx context.Context, s State) State {
	out := reporterOrDiscard(f.Out)
	outcome := Outcome(s)

	summary, streamed, err := f.generate(ctx, s.RequestText, outcome, out)
	if err == nil && strings.TrimSpace(summary) != "" {
		s.Summary = summary
		return s
	}
	if err != nil {
		logger(f.Logger).WithError(err).Warn("Summary generation failed, using fixed summary")
	}
	if streamed {
		out.Content(ctx, "\n\n")
		summary += "\n\n"
	} else {
		summary = ""
	}
	out.Content(ctx, outcome)
	s.Summary = summary + outcome
	return s
}

func (f *Finalizer) generate(ctx context.Context, request, outcome string, out Reporter) (string, bool, error) {
	if f.LLM == nil {
		return "", false, fmt.Errorf("no language model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, finalizeTimeout)
	defer cancel()

	streamed := false
	text, err := llm.Collect(ctx, f.LLM, []llm.Message{
		llm.System(finalizePrompt),
		llm.User(fmt.Sprintf(finalizeRequestTemplate, request, outcome)),
	}, llm.Options{Temperature: llm.Temperature(0.3)}, func(delta string) {
		if delta != "" {
			streamed = true
			out.Content(ctx, delta)
		}
	})
	return text, streamed, err
}

// Outcome describes the publish result in one or two plain sentences.
func Outcome(s State) string {
	r := s.PublishResult
	name := s.Platform.DisplayName()
	switch {
	case r == nil && s.Draft == "":
		return fmt.Sprintf("I couldn't create your %s post, so nothing was published. Please try again in a moment.", name)
	case r == nil:
		return fmt.Sprintf("Your %s post was written but not published.", name)
	case r.Succeeded():
		return fmt.Sprintf("Your %s post is live (post ID %s).", name, r.PostID)
	case r.ErrorCode == publisher.CodeTokenNotFound:
		return r.Message
	default:
		return fmt.Sprintf("Publishing to %s failed: %s", name, r.Message)
	}
}
