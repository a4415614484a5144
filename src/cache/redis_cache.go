package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"www.github.com/Wanderer0074348/EventSync/src/config"
)

// RedisCache is the Redis backend of the local cache. It also owns the
// process-wide Redis connection the stores share through GetClient.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	owned  bool
}

func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.CacheTTL,
		owned:  true,
	}, nil
}

// WithPrefix returns a cache view over the same connection with keys under prefix.
// Closing the view leaves the connection open.
func (c *RedisCache) WithPrefix(prefix string) *RedisCache {
	return &RedisCache{
		client: c.client,
		ttl:    c.ttl,
		prefix: prefix,
	}
}

func (c *RedisCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) SetItem(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

func (c *RedisCache) RemoveItem(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *RedisCache) Close() error {
	if !c.owned {
		return nil
	}
	return c.client.Close()
}

// GetClient returns the underlying Redis client for direct access
func (c *RedisCache) GetClient() *redis.Client {
	return c.client
}
