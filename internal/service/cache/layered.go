package cache

import (
	"context"
	"time"
)

// LayeredCache keeps a short-lived in-process copy (L1) in front of a
// shared cache (L2). Writes go to L2 first.
type LayeredCache struct {
	l1    *TTLCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayeredCache caps L1 entries at l1TTL so instances converge on L2.
func NewLayeredCache(l1 *TTLCache, l2 BytesCache, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: l1, l2: l2, l1TTL: l1TTL}
}

func (c *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.l1.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := c.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.SetBytes(ctx, key, b, c.l1TTL)
	return b, true, nil
}

func (c *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	local := c.l1TTL
	if ttl > 0 && ttl < local {
		local = ttl
	}
	return c.l1.SetBytes(ctx, key, value, local)
}
