package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfsmart/internal/enrich"
	"shelfsmart/internal/testutil"
)

func TestRedisCache(t *testing.T) {
	addr := testutil.StartRedis(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: addr, Prefix: "test:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Get(ctx, "absent")
	assert.ErrorIs(t, err, enrich.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte(`{"found":true}`), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"found":true}`, string(got))

	ttl, err := c.client.TTL(ctx, "test:k").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Set(ctx, "short", []byte("x"), 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, enrich.ErrCacheMiss)

	assert.NoError(t, c.Ping(ctx))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
