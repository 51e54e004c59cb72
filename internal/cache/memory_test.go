package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewInMemoryCache(time.Minute, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "org:a:user:1", "grants")
	v, ok := c.Get(ctx, "org:a:user:1")
	assert.True(t, ok)
	assert.Equal(t, "grants", v)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "org:a:user:1")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestInMemoryCacheDeletePrefix(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute, 0)
	c.Set(ctx, "org:a:user:1", 1)
	c.Set(ctx, "org:a:user:2", 2)
	c.Set(ctx, "org:b:user:1", 3)

	c.DeletePrefix(ctx, "org:a:")
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ctx, "org:b:user:1")
	assert.True(t, ok)
}

func TestInMemoryCacheCleanupStops(t *testing.T) {
	c := NewInMemoryCache(time.Millisecond, time.Millisecond)
	c.StartCleanup(context.Background())
	c.Set(context.Background(), "k", "v")
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
	c.StopCleanup()
	c.StopCleanup()
}
