package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"www.github.com/Wanderer0074348/EventSync/src/config"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cfg := &config.RedisConfig{
		Address:  mr.Addr(),
		Password: "",
		DB:       0,
		CacheTTL: time.Hour,
	}

	cache, err := NewRedisCache(cfg)
	require.NoError(t, err)

	return cache, mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()

	err := cache.SetItem(ctx, "identity:u1", `{"id":"u1"}`)
	assert.NoError(t, err)

	value, ok, err := cache.GetItem(ctx, "identity:u1")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"u1"}`, value)
}

func TestRedisCache_GetNonExistent(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	value, ok, err := cache.GetItem(context.Background(), "nonexistent:key")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestRedisCache_Remove(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.SetItem(ctx, "events:u1", "[]"))

	err := cache.RemoveItem(ctx, "events:u1")
	assert.NoError(t, err)

	_, ok, _ := cache.GetItem(ctx, "events:u1")
	assert.False(t, ok)
}

func TestRedisCache_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := &config.RedisConfig{
		Address:  mr.Addr(),
		CacheTTL: 1 * time.Second,
	}

	cache, err := NewRedisCache(cfg)
	require.NoError(t, err)
	defer cache.Close()

	ctx := context.Background()
	require.NoError(t, cache.SetItem(ctx, "test:expiry", "value"))

	mr.FastForward(2 * time.Second)

	_, ok, _ := cache.GetItem(ctx, "test:expiry")
	assert.False(t, ok, "Key should be expired")
}

func TestRedisCache_WithPrefix(t *testing.T) {
	cache, mr := setupTestRedis(t)
	defer mr.Close()
	defer cache.Close()

	local := cache.WithPrefix("local:")
	require.NoError(t, local.SetItem(context.Background(), "events:u1", "[]"))

	assert.True(t, mr.Exists("local:events:u1"))
	assert.NoError(t, local.Close())

	// The view does not own the connection.
	assert.NoError(t, cache.GetClient().Ping(context.Background()).Err())
}

func BenchmarkRedisCache_SetItem(b *testing.B) {
	mr, _ := miniredis.Run()
	defer mr.Close()

	cfg := &config.RedisConfig{
		Address:  mr.Addr(),
		CacheTTL: time.Hour,
	}
	cache, _ := NewRedisCache(cfg)
	defer cache.Close()

	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.SetItem(ctx, "bench:key", "value")
	}
}
