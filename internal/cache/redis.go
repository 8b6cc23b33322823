package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisKeyPrefix = "trial-eligibility:match:"

// RedisCache shares cached values between server instances.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
	stats  counters
}

// NewRedisCache connects to the Redis server at url and verifies the
// connection.
func NewRedisCache(url string, ttl time.Duration, logger *logrus.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("Connected to Redis match cache")

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.record(false, nil)
		return nil, false, nil
	}
	if err != nil {
		c.stats.record(false, err)
		return nil, false, fmt.Errorf("failed to read match cache: %w", err)
	}
	c.stats.record(true, nil)
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write match cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Stats() Stats {
	return c.stats.snapshot()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
