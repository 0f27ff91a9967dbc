package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
)

const qualityTimeout = 30 * time.Second

// QualityGate reviews the draft. The verdict is advisory: a needs_revision
// review is logged and counted but never stops publishing.
type QualityGate struct {
	LLM    llm.Provider
	Logger logging.Logger
}

func (q *QualityGate) Phase() Phase { return PhaseQuality }

func (q *QualityGate) Run(ctx context.Context, s State) State {
	if s.Draft == "" {
		return s
	}
	if q.LLM == nil {
		return s.WithError("Quality check failed: no language model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, qualityTimeout)
	defer cancel()
	raw, err := llm.Collect(ctx, q.LLM, []llm.Message{
		llm.System(qualityPrompt),
		llm.User(fmt.Sprintf(qualityRequestTemplate, s.Platform, s.Kind, s.Draft)),
	}, llm.Options{Temperature: llm.Temperature(0), JSON: true}, nil)
	if err != nil {
		logger(q.Logger).WithError(err).Warn("Quality check failed")
		return s.WithError("Quality check failed: %v", err)
	}

	review := parseReview(raw)
	s.Review = &review
	qualityOutcomes.WithLabelValues(review.Status).Inc()
	if !review.Approved() {
		logger(q.Logger).WithFields(logging.Fields{
			"platform": s.Platform.String(),
			"feedback": review.Feedback,
		}).Warn("Draft needs revision")
	}
	return s
}

// parseReview treats anything that is not a clear approval as a request for
// revision, keeping the raw text as feedback when it cannot be decoded.
func parseReview(raw string) Review {
	var review Review
	if err := decodeObject(raw, &review); err != nil {
		return Review{Status: ReviewNeedsRevision, Feedback: strings.TrimSpace(raw)}
	}
	review.Status = strings.ToLower(strings.TrimSpace(review.Status))
	if review.Status != ReviewApproved {
		review.Status = ReviewNeedsRevision
	}
	return review
}
