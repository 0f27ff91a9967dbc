package agent

import (
	"context"

	"frameworks/herald/internal/progress"
)

// Step is one node of the run. Run never fails: problems are recorded in the
// returned state's Errors.
type Step interface {
	Phase() Phase
	Run(ctx context.Context, s State) State
}

// Reporter receives progress for the client. *progress.Emitter satisfies it.
type Reporter interface {
	Emit(ctx context.Context, ev progress.Event) bool
	Content(ctx context.Context, text string)
}

type discardReporter struct{}

func (discardReporter) Emit(context.Context, progress.Event) bool { return true }
func (discardReporter) Content(context.Context, string)           {}

func reporterOrDiscard(r Reporter) Reporter {
	if r == nil {
		return discardReporter{}
	}
	return r
}
