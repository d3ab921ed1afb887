package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	a, err := Key("valuation", map[string]int{"year": 2019}, 2025)
	require.NoError(t, err)
	b, err := Key("valuation", map[string]int{"year": 2019}, 2025)
	require.NoError(t, err)
	c, err := Key("valuation", map[string]int{"year": 2019}, 2026)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("valuation:")+32)
}

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.SetBytes(ctx, "forever", []byte("x"), 0))

	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), b)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.GetBytes(ctx, "k")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.GetBytes(ctx, "valuation:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetBytes(ctx, "valuation:abc", []byte(`{"estimated_price":1}`), time.Minute))
	b, ok, err := c.GetBytes(ctx, "valuation:abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"estimated_price":1}`, string(b))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetBytes(ctx, "valuation:abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLayeredCacheFillsL1FromL2(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	l2 := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer l2.Close()
	l1 := NewTTLCache()
	c := NewLayeredCache(l1, l2, 30*time.Second)

	require.NoError(t, l2.SetBytes(ctx, "valuation:a", []byte("from-redis"), time.Hour))
	b, ok, err := c.GetBytes(ctx, "valuation:a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("from-redis"), b)
	assert.Equal(t, 1, l1.Len())

	// L1 now answers even after L2 loses the key
	mr.Del("valuation:a")
	b, ok, _ = c.GetBytes(ctx, "valuation:a")
	assert.True(t, ok)
	assert.Equal(t, []byte("from-redis"), b)
}

func TestLayeredCacheWritesThrough(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	l2 := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer l2.Close()
	c := NewLayeredCache(NewTTLCache(), l2, 30*time.Second)

	require.NoError(t, c.SetBytes(ctx, "valuation:b", []byte("v"), time.Hour))
	got, err := mr.Get("valuation:b")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Equal(t, time.Hour, mr.TTL("valuation:b"))

	mr.Close()
	assert.Error(t, c.SetBytes(ctx, "valuation:c", []byte("v"), time.Hour))
}
