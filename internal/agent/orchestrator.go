package agent

import (
	"context"
	"time"

	"frameworks/herald/internal/extract"
	"frameworks/herald/internal/progress"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
	"frameworks/herald/pkg/search"
)

// Deps are the clients a run needs. The job boundary owns their lifecycle.
type Deps struct {
	LLM             llm.Provider
	Search          search.Provider
	Fetcher         PageFetcher
	Extractor       extract.Extractor
	Poster          Poster
	ResearchResults int
	MediaDir        string
	Logger          logging.Logger
}

// Orchestrator sequences the steps of one run:
//
//	analyze -> clarify -> done
//	analyze -> research -> media -> draft -> quality -> publish -> finalize -> done
//
// Every step after analyze runs regardless of earlier failures so the run
// always reaches finalize. The orchestrator never emits end or error; the
// caller owns the terminal event.
type Orchestrator struct {
	analyze  Step
	clarify  Step
	pipeline []Step
	finalize Step
	out      Reporter
	logger   logging.Logger
}

func NewOrchestrator(deps Deps, out Reporter) *Orchestrator {
	log := logger(deps.Logger)
	out = reporterOrDiscard(out)
	return &Orchestrator{
		analyze: &Classifier{LLM: deps.LLM, Logger: log},
		clarify: &Clarifier{LLM: deps.LLM, Out: out, Logger: log},
		pipeline: []Step{
			&Researcher{
				LLM:       deps.LLM,
				Search:    deps.Search,
				Fetcher:   deps.Fetcher,
				Extractor: deps.Extractor,
				Results:   deps.ResearchResults,
				Logger:    log,
			},
			&MediaStep{LLM: deps.LLM, Dir: deps.MediaDir, Logger: log},
			&Drafter{LLM: deps.LLM, Logger: log},
			&QualityGate{LLM: deps.LLM, Logger: log},
			&PublishStep{Poster: deps.Poster},
		},
		finalize: &Finalizer{LLM: deps.LLM, Out: out, Logger: log},
		out:      out,
		logger:   log,
	}
}

func (o *Orchestrator) Run(ctx context.Context, s State) State {
	start := time.Now()
	s = o.step(ctx, o.analyze, s)

	if !s.Proceed() {
		s = o.step(ctx, o.clarify, s)
		runsTotal.WithLabelValues("clarified").Inc()
		o.done(s, start)
		return s.WithPhase(PhaseDone)
	}

	for _, step := range o.pipeline {
		s = o.step(ctx, step, s)
	}
	s = o.step(ctx, o.finalize, s)

	switch {
	case s.PublishResult != nil && s.PublishResult.Succeeded():
		runsTotal.WithLabelValues("published").Inc()
	default:
		runsTotal.WithLabelValues("not_published").Inc()
	}
	o.done(s, start)
	return s.WithPhase(PhaseDone)
}

// step announces the phase, runs the step and records its metrics. A panic
// inside a step is recorded as an error and the input state carries on.
func (o *Orchestrator) step(ctx context.Context, step Step, s State) (next State) {
	phase := step.Phase()
	o.out.Emit(ctx, marker(phase))
	s = s.WithPhase(phase)
	before := len(s.Errors)
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			o.logger.WithFields(logging.Fields{
				"phase": phase,
				"panic": rec,
			}).Error("Step panicked")
			next = s.WithError("%s step failed unexpectedly: %v", phase, rec)
		}
		stepDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
		if len(next.Errors) > before {
			stepFailures.WithLabelValues(string(phase)).Inc()
			o.logger.WithFields(logging.Fields{
				"phase": phase,
				"error": next.Errors[len(next.Errors)-1],
			}).Warn("Step recorded an error")
		}
	}()

	return step.Run(ctx, s)
}

func (o *Orchestrator) done(s State, start time.Time) {
	fields := logging.Fields{
		"requester_id": s.RequesterID,
		"platform":     s.Platform.String(),
		"content_kind": s.Kind.String(),
		"clear":        s.RequirementsClear,
		"evidence":     len(s.Evidence),
		"errors":       len(s.Errors),
		"duration":     time.Since(start),
	}
	if s.PublishResult != nil {
		fields["publish_status"] = s.PublishResult.Status
		fields["error_code"] = s.PublishResult.ErrorCode
	}
	o.logger.WithFields(fields).Info("Agent run finished")
}

func marker(p Phase) progress.Event {
	switch p {
	case PhaseAnalyze:
		return progress.Phase(progress.TypeAnalyzing)
	case PhaseClarify:
		return progress.Phase(progress.TypeClarifying)
	case PhaseResearch:
		return progress.Phase(progress.TypeResearching)
	case PhaseMedia:
		return progress.Phase(progress.TypeMedia)
	case PhaseDraft:
		return progress.Phase(progress.TypeDrafting)
	case PhaseQuality:
		return progress.Phase(progress.TypeQuality)
	case PhasePublish:
		return progress.Phase(progress.TypePosting)
	default:
		return progress.Processing(string(p))
	}
}
