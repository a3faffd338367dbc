// README: Redis Pub/Sub publisher for the live notification feed.
package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Publisher pushes one payload onto one audience channel. Delivery to
// connected subscribers is best effort; the read endpoints remain the
// poll fallback.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.redis.Publish(ctx, channel, payload).Err()
}
