// Package cache provides a small in-process TTL cache.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// InMemoryCache is a mutex-guarded map with per-entry expiry. Expired entries
// are never returned; a background loop removes them.
type InMemoryCache struct {
	mu          sync.RWMutex
	items       map[string]entry
	ttl         time.Duration
	cleanupFreq time.Duration
	now         func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

func NewInMemoryCache(ttl, cleanupFreq time.Duration) *InMemoryCache {
	return &InMemoryCache{
		items:       make(map[string]entry),
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
}

func (c *InMemoryCache) Set(_ context.Context, key string, value interface{}) {
	c.mu.Lock()
	c.items[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *InMemoryCache) Get(_ context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *InMemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// DeletePrefix drops every key starting with prefix.
func (c *InMemoryCache) DeletePrefix(_ context.Context, prefix string) {
	c.mu.Lock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// StartCleanup runs the eviction loop until ctx is done or StopCleanup is
// called.
func (c *InMemoryCache) StartCleanup(ctx context.Context) {
	if c.cleanupFreq <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.cleanupFreq)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			case <-ticker.C:
				c.evictExpired()
			}
		}
	}()
}

func (c *InMemoryCache) StopCleanup() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) evictExpired() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}
