// Package agent turns a free-form request into a published social post. Each
// step takes a State value and returns the next one; nothing is shared
// between runs.
package agent

import (
	"fmt"

	"frameworks/herald/internal/platform"
	"frameworks/herald/internal/publisher"
)

// Phase names the step a run is in.
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseAnalyze  Phase = "analyze_requirements"
	PhaseClarify  Phase = "clarify_requirements"
	PhaseResearch Phase = "research_content"
	PhaseMedia    Phase = "generate_media"
	PhaseDraft    Phase = "create_content"
	PhaseQuality  Phase = "quality_check"
	PhasePublish  Phase = "post_content"
	PhaseFinalize Phase = "finalize"
	PhaseDone     Phase = "done"
)

// Review is the quality gate's verdict.
type Review struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

const (
	ReviewApproved      = "approved"
	ReviewNeedsRevision = "needs_revision"
)

func (r Review) Approved() bool {
	return r.Status == ReviewApproved
}

// State is the value threaded through one run. Methods return modified
// copies; slices are reallocated on append so earlier values stay intact.
type State struct {
	RequestText string
	RequesterID int64

	Platform          platform.Platform
	Kind              platform.ContentKind
	RequirementsClear bool
	Clarification     string

	Evidence    []string
	MediaRef    string
	MediaPrompt string
	Draft       string
	Review      *Review

	PublishResult *publisher.Result
	Summary       string

	Errors []string
	Phase  Phase
}

func NewState(requestText string, requesterID int64) State {
	return State{RequestText: requestText, RequesterID: requesterID, Phase: PhaseStart}
}

func (s State) WithError(format string, args ...any) State {
	errs := make([]string, len(s.Errors), len(s.Errors)+1)
	copy(errs, s.Errors)
	s.Errors = append(errs, fmt.Sprintf(format, args...))
	return s
}

func (s State) WithEvidence(blocks ...string) State {
	if len(blocks) == 0 {
		return s
	}
	evidence := make([]string, len(s.Evidence), len(s.Evidence)+len(blocks))
	copy(evidence, s.Evidence)
	s.Evidence = append(evidence, blocks...)
	return s
}

func (s State) WithPhase(p Phase) State {
	s.Phase = p
	return s
}

// Proceed is the gate after classification: the pattern check passed and
// both fields resolved.
func (s State) Proceed() bool {
	return s.RequirementsClear && s.Platform.Resolved() && s.Kind.Resolved()
}

// Reply is the text stored as the assistant's message for this run.
func (s State) Reply() string {
	if s.Clarification != "" {
		return s.Clarification
	}
	return s.Summary
}
