// Package taskqueue runs each accepted job at most once on a pool of
// workers.
package taskqueue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Consume once the queue can no longer
// deliver jobs.
var ErrQueueClosed = errors.New("task queue closed")

// Job is one agent run requested by a chat message.
type Job struct {
	ID           string    `json:"id"`
	RequestText  string    `json:"request_text"`
	CheckpointID string    `json:"checkpoint_id,omitempty"`
	RequesterID  int64     `json:"requester_id"`
	ChannelID    string    `json:"channel_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// NewJob stamps an id and submission time.
func NewJob(requestText, checkpointID string, requesterID int64, channelID string) Job {
	return Job{
		ID:           uuid.NewString(),
		RequestText:  requestText,
		CheckpointID: checkpointID,
		RequesterID:  requesterID,
		ChannelID:    channelID,
		SubmittedAt:  time.Now().UTC(),
	}
}

// Queue is the submit/consume capability the API and the worker share.
// A consumed job is never redelivered, whether or not Done is called.
type Queue interface {
	Submit(ctx context.Context, job Job) error
	// Depth counts jobs that are running, reserved or waiting.
	Depth(ctx context.Context) (int, error)
	Consume(ctx context.Context) (Job, error)
	Done(ctx context.Context, job Job) error
}
