package agent

import (
	"context"

	"frameworks/herald/internal/publisher"
)

// Poster publishes one post. *publisher.Publisher satisfies it.
type Poster interface {
	Publish(ctx context.Context, req publisher.Request) publisher.Result
}

// PublishStep makes the single publish attempt of a run. Without a draft
// there is nothing to post and no attempt is made.
type PublishStep struct {
	Poster Poster
}

func (p *PublishStep) Phase() Phase { return PhasePublish }

func (p *PublishStep) Run(ctx context.Context, s State) State {
	if s.PublishResult != nil {
		return s
	}
	if s.Draft == "" {
		return s.WithError("Posting skipped: no content was created")
	}
	if p.Poster == nil {
		return s.WithError("Posting failed: no publisher configured")
	}
	result := p.Poster.Publish(ctx, publisher.Request{
		Platform:    s.Platform,
		Kind:        s.Kind,
		RequesterID: s.RequesterID,
		Content:     s.Draft,
		MediaRef:    s.MediaRef,
	})
	s.PublishResult = &result
	if !result.Succeeded() {
		s = s.WithError("Posting failed: %s", result.Message)
	}
	return s
}
