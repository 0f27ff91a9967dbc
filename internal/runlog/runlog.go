// Package runlog publishes one summary per finished job to the event bus.
package runlog

import (
	"context"
	"time"

	"frameworks/herald/internal/agent"
	"frameworks/herald/pkg/logging"
)

const (
	DefaultTopic = "herald_runs"
	source       = "herald-worker"

	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
)

// Producer is the slice of pkg/kafka.Producer this package needs.
type Producer interface {
	ProduceJSON(ctx context.Context, topic, key string, value any, headers map[string]string) error
}

type Summary struct {
	JobID             string    `json:"job_id"`
	ThreadID          string    `json:"thread_id,omitempty"`
	RequesterID       int64     `json:"requester_id"`
	Event             string    `json:"event"`
	Platform          string    `json:"platform,omitempty"`
	ContentKind       string    `json:"content_kind,omitempty"`
	RequirementsClear bool      `json:"requirements_clear"`
	EvidenceCount     int       `json:"evidence_count"`
	ReviewStatus      string    `json:"review_status,omitempty"`
	PublishStatus     string    `json:"publish_status,omitempty"`
	ErrorCode         string    `json:"error_code,omitempty"`
	PostID            string    `json:"post_id,omitempty"`
	Errors            []string  `json:"errors,omitempty"`
	Failure           string    `json:"failure,omitempty"`
	DurationMS        int64     `json:"duration_ms"`
	FinishedAt        time.Time `json:"finished_at"`
}

// FromState summarises a completed agent run.
func FromState(jobID, threadID string, s agent.State, duration time.Duration) Summary {
	sum := Summary{
		JobID:             jobID,
		ThreadID:          threadID,
		RequesterID:       s.RequesterID,
		Event:             EventRunCompleted,
		RequirementsClear: s.RequirementsClear,
		EvidenceCount:     len(s.Evidence),
		Errors:            s.Errors,
		DurationMS:        duration.Milliseconds(),
		FinishedAt:        time.Now().UTC(),
	}
	if s.Platform.Resolved() {
		sum.Platform = s.Platform.String()
	}
	if s.Kind.Resolved() {
		sum.ContentKind = s.Kind.String()
	}
	if s.Review != nil {
		sum.ReviewStatus = s.Review.Status
	}
	if r := s.PublishResult; r != nil {
		sum.PublishStatus = r.Status
		sum.ErrorCode = r.ErrorCode
		sum.PostID = r.PostID
	}
	return sum
}

// Failed summarises a job that never produced a final state.
func Failed(jobID string, requesterID int64, err error, duration time.Duration) Summary {
	return Summary{
		JobID:       jobID,
		RequesterID: requesterID,
		Event:       EventRunFailed,
		Failure:     err.Error(),
		DurationMS:  duration.Milliseconds(),
		FinishedAt:  time.Now().UTC(),
	}
}

// Publisher sends summaries. With no producer it does nothing.
type Publisher struct {
	producer Producer
	topic    string
	logger   logging.Logger
}

func NewPublisher(producer Producer, topic string, logger logging.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger}
}

// Publish is fire-and-report: failures are logged, never returned, since a
// lost summary must not fail the job that produced it.
func (p *Publisher) Publish(ctx context.Context, sum Summary) {
	if p == nil || p.producer == nil {
		return
	}
	headers := map[string]string{
		"source":     source,
		"event_type": sum.Event,
	}
	if err := p.producer.ProduceJSON(ctx, p.topic, sum.JobID, sum, headers); err != nil {
		p.logger.WithError(err).WithFields(logging.Fields{
			"job_id": sum.JobID,
			"topic":  p.topic,
		}).Warn("Failed to publish run summary")
	}
}
