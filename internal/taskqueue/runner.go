package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"frameworks/herald/pkg/logging"
)

const (
	DefaultWorkers   = 1
	DefaultTimeLimit = 300 * time.Second

	consumeBackoff = time.Second
	doneTimeout    = 5 * time.Second
)

// ErrTimeLimit marks a job that ran past the runner's hard limit.
var ErrTimeLimit = errors.New("job exceeded time limit")

// PanicError wraps a value recovered from a handler panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

type (
	Handler     func(ctx context.Context, job Job) error
	FailureFunc func(ctx context.Context, job Job, err error)
)

// Runner pulls jobs from a Queue and executes each one exactly once. There
// are no retries: a failed, panicked or timed-out job is reported through
// OnFailure and dropped.
type Runner struct {
	Queue     Queue
	Handler   Handler
	OnFailure FailureFunc
	Workers   int
	TimeLimit time.Duration
	Logger    logging.Logger
}

// Run blocks until ctx is cancelled or the queue closes. Jobs already
// executing when ctx ends are allowed to finish within their time limit.
func (r *Runner) Run(ctx context.Context) error {
	if r.Queue == nil || r.Handler == nil {
		return errors.New("taskqueue: runner needs a queue and a handler")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := r.logger()
	logger.WithField("workers", workers).Info("Task runner started")

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		worker := i
		g.Go(func() error {
			r.work(ctx, worker)
			return nil
		})
	}
	err := g.Wait()
	logger.Info("Task runner stopped")
	return err
}

func (r *Runner) work(ctx context.Context, worker int) {
	logger := r.logger().WithField("worker", worker)
	for {
		job, err := r.Queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			logger.WithError(err).Warn("Failed to consume job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(consumeBackoff):
			}
			continue
		}
		r.execute(ctx, job)
	}
}

func (r *Runner) execute(ctx context.Context, job Job) {
	limit := r.TimeLimit
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	logger := r.logger().WithFields(logging.Fields{
		"job_id":       job.ID,
		"requester_id": job.RequesterID,
		"channel_id":   job.ChannelID,
	})

	// Shutdown does not cut a running job short; only the limit does.
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), limit)
	defer cancel()

	start := time.Now()
	if !job.SubmittedAt.IsZero() {
		jobWaitSeconds.Observe(start.Sub(job.SubmittedAt).Seconds())
	}
	activeJobs.Inc()
	err := r.invoke(jobCtx, job)
	activeJobs.Dec()
	jobDuration.Observe(time.Since(start).Seconds())

	doneCtx, doneCancel := context.WithTimeout(context.WithoutCancel(ctx), doneTimeout)
	if doneErr := r.Queue.Done(doneCtx, job); doneErr != nil {
		logger.WithError(doneErr).Warn("Failed to mark job done")
	}
	doneCancel()

	outcome := outcomeOf(err)
	jobsTotal.WithLabelValues(outcome).Inc()
	if err == nil {
		logger.WithField("duration", time.Since(start)).Info("Job completed")
		return
	}

	entry := logger.WithError(err).WithField("outcome", outcome)
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		entry = entry.WithField("stack", string(panicErr.Stack))
	}
	entry.Error("Job failed")
	if r.OnFailure != nil {
		failCtx, failCancel := context.WithTimeout(context.WithoutCancel(ctx), doneTimeout)
		r.OnFailure(failCtx, job, err)
		failCancel()
	}
}

// invoke runs the handler on its own goroutine so a handler that ignores
// its context still cannot hold the worker past the limit.
func (r *Runner) invoke(ctx context.Context, job Job) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- &PanicError{Value: rec, Stack: debug.Stack()}
			}
		}()
		done <- r.Handler(ctx, job)
	}()

	select {
	case err := <-done:
		if err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", ErrTimeLimit, err)
		}
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w after %s", ErrTimeLimit, r.limitOrDefault())
	}
}

func (r *Runner) limitOrDefault() time.Duration {
	if r.TimeLimit > 0 {
		return r.TimeLimit
	}
	return DefaultTimeLimit
}

func (r *Runner) logger() logging.Logger {
	if r.Logger == nil {
		return discardLogger
	}
	return r.Logger
}

func outcomeOf(err error) string {
	var panicErr *PanicError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &panicErr):
		return "panic"
	case errors.Is(err, ErrTimeLimit):
		return "timeout"
	default:
		return "failed"
	}
}

var discardLogger = logging.NewDiscardLogger()
