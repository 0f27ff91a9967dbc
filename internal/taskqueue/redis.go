package taskqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"frameworks/herald/pkg/logging"
)

const DefaultQueueName = "herald:llm_tasks"

const defaultPollInterval = time.Second

// RedisQueue keeps waiting jobs in a list. Consume moves a job atomically
// into a reserved list and then into an active hash, so a job is visible in
// Depth from submission until Done.
type RedisQueue struct {
	client       goredis.UniversalClient
	pending      string
	reserved     string
	active       string
	pollInterval time.Duration
	logger       logging.Logger
}

func NewRedisQueue(client goredis.UniversalClient, name string, logger logging.Logger) *RedisQueue {
	if name == "" {
		name = DefaultQueueName
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &RedisQueue{
		client:       client,
		pending:      name,
		reserved:     name + ":reserved",
		active:       name + ":active",
		pollInterval: defaultPollInterval,
		logger:       logger,
	}
}

func (q *RedisQueue) Submit(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, q.pending, payload).Err(); err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Depth(ctx context.Context) (int, error) {
	var active, reserved, pending *goredis.IntCmd
	_, err := q.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		active = p.HLen(ctx, q.active)
		reserved = p.LLen(ctx, q.reserved)
		pending = p.LLen(ctx, q.pending)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return int(active.Val() + reserved.Val() + pending.Val()), nil
}

// Consume blocks until a job is available or ctx ends.
func (q *RedisQueue) Consume(ctx context.Context) (Job, error) {
	for {
		payload, err := q.client.BLMove(ctx, q.pending, q.reserved, "RIGHT", "LEFT", q.pollInterval).Result()
		switch {
		case errors.Is(err, goredis.Nil):
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			continue
		case errors.Is(err, goredis.ErrClosed):
			return Job{}, ErrQueueClosed
		case err != nil:
			if ctx.Err() != nil {
				return Job{}, ctx.Err()
			}
			return Job{}, fmt.Errorf("consume job: %w", err)
		}

		var job Job
		if err := json.Unmarshal([]byte(payload), &job); err != nil || job.ID == "" {
			q.logger.WithError(err).WithField("queue", q.pending).Error("Discarding undecodable job")
			_ = q.client.LRem(context.WithoutCancel(ctx), q.reserved, 1, payload).Err()
			continue
		}

		// The job stays in the reserved list until it is recorded as active,
		// so it is counted by Depth at every point.
		_, err = q.client.TxPipelined(context.WithoutCancel(ctx), func(p goredis.Pipeliner) error {
			p.HSet(ctx, q.active, job.ID, payload)
			p.LRem(ctx, q.reserved, 1, payload)
			return nil
		})
		if err != nil {
			q.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to mark job active")
		}
		return job, nil
	}
}

func (q *RedisQueue) Done(ctx context.Context, job Job) error {
	if err := q.client.HDel(ctx, q.active, job.ID).Err(); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	return nil
}
