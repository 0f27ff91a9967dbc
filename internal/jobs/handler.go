// Package jobs is the boundary between the task runner and an agent run. It
// owns the job's database handle, its conversation bookkeeping and its single
// terminal progress event.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"frameworks/herald/internal/agent"
	"frameworks/herald/internal/conversations"
	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/runlog"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/pkg/database"
	"frameworks/herald/pkg/logging"
)

const (
	CheckpointNotFound = "Checkpoint not found"
	TimedOut           = "Your request took too long and was stopped. Please try again."

	terminalTimeout = 5 * time.Second
)

type Handler struct {
	// Open yields a connection for this job alone, released when the job ends.
	Open    database.Opener
	Channel progress.Sink
	Agent   agent.Deps
	Runs    *runlog.Publisher
	Logger  logging.Logger

	emitters sync.Map // job id -> *progress.Emitter
}

// emitterFor returns the job's emitter, shared by Handle and Fail so that a
// job never produces more than one terminal event.
func (h *Handler) emitterFor(job taskqueue.Job) *progress.Emitter {
	if em, ok := h.emitters.Load(job.ID); ok {
		return em.(*progress.Emitter)
	}
	em, _ := h.emitters.LoadOrStore(job.ID, progress.NewEmitter(h.Channel, job.ChannelID, h.logger()))
	return em.(*progress.Emitter)
}

// Handle runs one job. A returned error leaves the terminal event to Fail.
func (h *Handler) Handle(ctx context.Context, job taskqueue.Job) error {
	start := time.Now()
	log := h.logger().WithFields(logging.Fields{
		"job_id":       job.ID,
		"channel_id":   job.ChannelID,
		"requester_id": job.RequesterID,
	})
	em := h.emitterFor(job)

	db, release, err := h.Open(ctx)
	if err != nil {
		return fmt.Errorf("open job database: %w", err)
	}
	defer release()
	store := conversations.NewStore(db)

	thread, err := h.thread(ctx, store, job, em)
	if errors.Is(err, conversations.ErrThreadNotFound) {
		log.WithField("checkpoint_id", job.CheckpointID).Warn("Checkpoint not found")
		h.finish(ctx, job, em, progress.Error(CheckpointNotFound))
		return nil
	}
	if err != nil {
		return err
	}
	log = log.WithField("thread_id", thread.ThreadID)

	if _, err := store.Append(ctx, thread.ID, conversations.RoleHuman, job.RequestText); err != nil {
		return fmt.Errorf("store request: %w", err)
	}

	orchestrator := agent.NewOrchestrator(h.Agent, em)
	state := orchestrator.Run(ctx, agent.NewState(job.RequestText, job.RequesterID))

	if reply := state.Reply(); reply != "" {
		if _, err := store.Append(ctx, thread.ID, conversations.RoleAI, reply); err != nil {
			log.WithError(err).Error("Failed to store reply")
		}
	}

	h.finish(ctx, job, em, progress.End())

	h.Runs.Publish(ctx, runlog.FromState(job.ID, thread.ThreadID, state, time.Since(start)))
	log.WithFields(logging.Fields{
		"errors":   len(state.Errors),
		"duration": time.Since(start),
	}).Info("Job finished")
	return nil
}

// thread resumes the checkpointed thread or starts a new one, announcing new
// thread ids to the client.
func (h *Handler) thread(ctx context.Context, store *conversations.Store, job taskqueue.Job, em *progress.Emitter) (conversations.Thread, error) {
	if job.CheckpointID != "" {
		return store.Find(ctx, job.CheckpointID, job.RequesterID)
	}
	thread, err := store.Create(ctx, job.RequesterID, job.RequestText)
	if err != nil {
		return conversations.Thread{}, err
	}
	em.Emit(ctx, progress.Checkpoint(thread.ThreadID))
	return thread, nil
}

// Fail reports a job that errored, panicked or ran out of time.
func (h *Handler) Fail(ctx context.Context, job taskqueue.Job, err error) {
	h.finish(ctx, job, h.emitterFor(job), progress.Error(FailureMessage(err)))

	duration := time.Duration(0)
	if !job.SubmittedAt.IsZero() {
		duration = time.Since(job.SubmittedAt)
	}
	h.Runs.Publish(ctx, runlog.Failed(job.ID, job.RequesterID, err, duration))
}

// finish publishes the terminal event even when the job's deadline has
// already passed.
func (h *Handler) finish(ctx context.Context, job taskqueue.Job, em *progress.Emitter, ev progress.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalTimeout)
	defer cancel()
	em.Emit(ctx, ev)
	h.emitters.Delete(job.ID)
}

// FailureMessage is the error text shown to the client.
func FailureMessage(err error) string {
	var panicErr *taskqueue.PanicError
	switch {
	case errors.Is(err, taskqueue.ErrTimeLimit):
		return TimedOut
	case errors.As(err, &panicErr):
		return "An unexpected error occurred while processing your request."
	default:
		return err.Error()
	}
}

func (h *Handler) logger() logging.Logger {
	if h.Logger == nil {
		return discardLogger
	}
	return h.Logger
}

var discardLogger = logging.NewDiscardLogger()
