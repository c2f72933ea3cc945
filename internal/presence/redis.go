package presence

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const onlineKey = "presence:online"

// RedisTracker keeps per-username connection counts in a Redis hash so
// the online set survives process restarts. Selected when REDIS_URL is
// configured.
type RedisTracker struct {
	client *redis.Client
}

func NewRedisTracker(ctx context.Context, redisURL string) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisTracker{client: client}, nil
}

func (t *RedisTracker) Close() error {
	return t.client.Close()
}

func (t *RedisTracker) Connect(ctx context.Context, username string) error {
	return t.client.HIncrBy(ctx, onlineKey, username, 1).Err()
}

func (t *RedisTracker) Disconnect(ctx context.Context, username string) error {
	n, err := t.client.HIncrBy(ctx, onlineKey, username, -1).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return t.client.HDel(ctx, onlineKey, username).Err()
	}
	return nil
}

func (t *RedisTracker) Online(ctx context.Context) ([]string, error) {
	fields, err := t.client.HKeys(ctx, onlineKey).Result()
	if err != nil {
		return nil, err
	}
	return fields, nil
}
