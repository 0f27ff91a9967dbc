package progress

import (
	"context"
	"io"

	goredis "github.com/redis/go-redis/v9"

	"frameworks/herald/pkg/logging"
	heraldredis "frameworks/herald/pkg/redis"
)

// Sink accepts events for a channel id.
type Sink interface {
	Publish(ctx context.Context, channelID string, ev Event) error
}

// Channel is the Redis pub/sub transport for progress events. Delivery is
// FIFO per channel and at-most-once: nothing is replayed to late subscribers.
type Channel struct {
	ps *heraldredis.TypedPubSub[Event]
}

func NewChannel(client goredis.UniversalClient, logger logging.Logger) *Channel {
	return &Channel{ps: heraldredis.NewTypedPubSub[Event](client, logger)}
}

func (c *Channel) Publish(ctx context.Context, channelID string, ev Event) error {
	return c.ps.Publish(ctx, channelID, ev)
}

// Subscribe returns after the subscription is live, so a job submitted
// afterwards cannot publish before the caller is listening.
func (c *Channel) Subscribe(ctx context.Context, channelID string) (*Stream, error) {
	sub, err := c.ps.Subscribe(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return &Stream{sub: sub}, nil
}

// Stream is a live subscription that ends after the first terminal event.
type Stream struct {
	sub  *heraldredis.Subscription[Event]
	done bool
}

// Next returns io.EOF once a terminal event has been returned.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	if s.done {
		return Event{}, io.EOF
	}
	ev, err := s.sub.Next(ctx)
	if err != nil {
		return Event{}, err
	}
	if ev.Terminal() {
		s.done = true
	}
	return ev, nil
}

func (s *Stream) Close() error {
	return s.sub.Close()
}
