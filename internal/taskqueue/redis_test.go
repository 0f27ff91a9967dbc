package taskqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"frameworks/herald/pkg/logging"
)

func newTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewRedisQueue(client, "test:jobs", logging.NewDiscardLogger())
	return q, mr
}

func TestRedisQueueDeliversInSubmissionOrder(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	first := NewJob("post about cats on facebook", "", 1, "chat_1_a")
	second := NewJob("post about dogs on linkedin", "", 2, "chat_2_b")
	for _, job := range []Job{first, second} {
		if err := q.Submit(ctx, job); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if depth != 2 {
		t.Fatalf("expected depth 2, got %d", depth)
	}

	got, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.ID != first.ID || got.RequestText != first.RequestText || got.ChannelID != first.ChannelID {
		t.Fatalf("expected first job, got %+v", got)
	}
}

func TestRedisQueueCountsActiveJobsUntilDone(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	job := NewJob("hello", "", 7, "chat_7_x")
	if err := q.Submit(ctx, job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := q.Consume(ctx); err != nil {
		t.Fatalf("consume: %v", err)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if depth != 1 {
		t.Fatalf("expected running job to count, got depth %d", depth)
	}
	if mr.Exists("test:jobs:reserved") {
		t.Fatalf("expected reserved list to be drained")
	}

	if err := q.Done(ctx, job); err != nil {
		t.Fatalf("done: %v", err)
	}
	depth, err = q.Depth(ctx)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if depth != 0 {
		t.Fatalf("expected empty queue, got depth %d", depth)
	}
}

func TestRedisQueueConsumeHonoursContext(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := q.Consume(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRedisQueueSkipsUndecodablePayloads(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	if _, err := mr.Lpush("test:jobs", "not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	job := NewJob("valid", "", 3, "chat_3_y")
	if err := q.Submit(ctx, job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.ID != job.ID {
		t.Fatalf("expected valid job after garbage, got %+v", got)
	}
	if mr.Exists("test:jobs:reserved") {
		t.Fatalf("expected garbage to be removed from the reserved list")
	}
}

func TestRedisQueueReportsClosedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	q := NewRedisQueue(client, "", nil)
	_ = client.Close()

	_, err := q.Consume(context.Background())
	if !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}
