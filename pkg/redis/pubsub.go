package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"frameworks/herald/pkg/logging"
)

// ErrSubscriptionClosed is returned by Next once the underlying channel is gone.
var ErrSubscriptionClosed = errors.New("subscription closed")

// TypedPubSub publishes and receives JSON-encoded values of type T.
type TypedPubSub[T any] struct {
	client goredis.UniversalClient
	logger logging.Logger
}

func NewTypedPubSub[T any](client goredis.UniversalClient, logger logging.Logger) *TypedPubSub[T] {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &TypedPubSub[T]{client: client, logger: logger}
}

func (p *TypedPubSub[T]) Publish(ctx context.Context, channel string, msg T) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal pubsub payload: %w", err)
	}

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}

	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so anything
// published after the call returns is delivered to it.
func (p *TypedPubSub[T]) Subscribe(ctx context.Context, channel string) (*Subscription[T], error) {
	sub := p.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to redis: %w", err)
	}
	return &Subscription[T]{
		sub:     sub,
		ch:      sub.Channel(),
		channel: channel,
		logger:  p.logger,
	}, nil
}

// Subscription is a confirmed subscription to one channel.
type Subscription[T any] struct {
	sub     *goredis.PubSub
	ch      <-chan *goredis.Message
	channel string
	logger  logging.Logger
}

// Next blocks for the next decodable message. Payloads that fail to decode
// are logged and skipped.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case msg, ok := <-s.ch:
			if !ok {
				return zero, ErrSubscriptionClosed
			}
			var payload T
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				s.logger.WithError(err).WithField("channel", s.channel).Warn("Dropping undecodable pubsub payload")
				continue
			}
			return payload, nil
		}
	}
}

// Close unsubscribes and releases the connection.
func (s *Subscription[T]) Close() error {
	return s.sub.Close()
}
