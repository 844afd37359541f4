package counter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCounter struct {
	client    *redis.Client
	namespace string
}

func NewRedisCounter(client *redis.Client, namespace string) *RedisCounter {
	return &RedisCounter{client: client, namespace: namespace}
}

func (c *RedisCounter) key(key string) string {
	return c.namespace + ":" + key
}

func (c *RedisCounter) Increment(ctx context.Context, key string) (int64, error) {
	if c.client == nil {
		return 0, errors.New("counter: redis client not configured")
	}
	return c.client.Incr(ctx, c.key(key)).Result()
}

func (c *RedisCounter) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	if c.client == nil {
		return errors.New("counter: redis client not configured")
	}
	return c.client.Expire(ctx, c.key(key), ttl).Err()
}

func (c *RedisCounter) Delete(ctx context.Context, key string) error {
	if c.client == nil {
		return errors.New("counter: redis client not configured")
	}
	return c.client.Del(ctx, c.key(key)).Err()
}
