package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes payloads on Redis pub/sub channels named after the
// topic.
type RedisSink struct {
	client redis.UniversalClient
}

// NewRedisSink wraps an existing client. The caller owns the client.
func NewRedisSink(client redis.UniversalClient) *RedisSink {
	return &RedisSink{client: client}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, topic string, payload []byte) error {
	return s.client.Publish(ctx, topic, payload).Err()
}

// Ping checks the connection.
func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
