package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
)

const clarifyTimeout = 60 * time.Second

// Clarifier explains what a usable request looks like. Model output is
// streamed to the client as it arrives; when the model fails before saying
// anything the static guide is sent instead.
type Clarifier struct {
	LLM    llm.Provider
	Out    Reporter
	Logger logging.Logger
}

func (c *Clarifier) Phase() Phase { return PhaseClarify }

func (c *Clarifier) Run(ctx context.Context, s State) State {
	out := reporterOrDiscard(c.Out)

	guidance, streamed, err := c.generate(ctx, s.RequestText, out)
	if err == nil && strings.TrimSpace(guidance) != "" {
		s.Clarification = guidance
		return s
	}
	if err != nil {
		logger(c.Logger).WithError(err).Warn("Clarification generation failed, using static guide")
	}
	if streamed {
		// Part of a reply already reached the client; finish on a new paragraph.
		out.Content(ctx, "\n\n")
		guidance += "\n\n"
	} else {
		guidance = ""
	}
	out.Content(ctx, clarificationFallback)
	s.Clarification = guidance + clarificationFallback
	return s
}

func (c *Clarifier) generate(ctx context.Context, request string, out Reporter) (string, bool, error) {
	if c.LLM == nil {
		return "", false, fmt.Errorf("no language model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, clarifyTimeout)
	defer cancel()

	streamed := false
	text, err := llm.Collect(ctx, c.LLM, []llm.Message{
		llm.System(clarifierPrompt),
		llm.User(fmt.Sprintf(clarifierRequestTemplate, request)),
	}, llm.Options{Temperature: llm.Temperature(0.4)}, func(delta string) {
		if delta != "" {
			streamed = true
			out.Content(ctx, delta)
		}
	})
	return text, streamed, err
}
