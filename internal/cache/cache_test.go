package cache

import (
	"context"
	"testing"
	"time"

	"ProgressSync/internal/config"
	"ProgressSync/internal/testutil"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_, ok := m.Get(ctx, "day")
	assert.False(t, ok)

	m.Set(ctx, "day", []byte("v1"), time.Minute)
	m.Set(ctx, "all", []byte("v2"), 0)
	v, ok := m.Get(ctx, "day")
	require.True(t, ok)
	assert.Equal(t, "v1", string(v))

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(ctx, "day")
	assert.False(t, ok, "过期后应未命中")
	_, ok = m.Get(ctx, "all")
	assert.True(t, ok, "ttl 为 0 不过期")

	require.NoError(t, m.Invalidate(ctx))
	_, ok = m.Get(ctx, "all")
	assert.False(t, ok)
}

func TestNewRedisCacheRequiresAddr(t *testing.T) {
	_, err := NewRedisCache(context.Background(), config.RedisConfig{}, testutil.NewLogger())
	assert.Error(t, err)
}

func TestRedisCacheFailsOpen(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()
	c := newRedisCache(rdb, "", testutil.NewLogger())
	assert.Equal(t, "progresssync:leaderboard:", c.prefix)

	ctx := context.Background()
	_, ok := c.Get(ctx, "day")
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.Set(ctx, "day", []byte("x"), time.Minute) })
	assert.Error(t, c.Invalidate(ctx))
}
