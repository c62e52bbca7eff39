package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Worldstreet-team/xtreme-livestream/pkg/pubsub"
)

var ErrCacheMiss = errors.New("cache miss")

// RedisPageCache implements PageCache on redis.
type RedisPageCache struct {
	client *redis.Client
	prefix string
}

func NewRedisPageCache(cfg pubsub.RedisConfig, prefix string) (*RedisPageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPageCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisPageCache) BuildKey(streamID, beforeID string, limit int) string {
	if beforeID == "" {
		beforeID = "latest"
	}
	return fmt.Sprintf("%s:%s:%s:%d", c.prefix, streamID, beforeID, limit)
}

func (c *RedisPageCache) Get(ctx context.Context, key string) (*PageResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result PageResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key string, result *PageResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisPageCache) Close() error {
	return c.client.Close()
}
