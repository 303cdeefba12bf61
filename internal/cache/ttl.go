// Package cache holds a small in-process TTL cache used for read-mostly query
// results.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const DefaultTTL = 30 * time.Second

type (
	Option[K comparable, V any] func(*TTL[K, V])

	entry[V any] struct {
		data    V
		expires time.Time
	}

	// TTL maps keys to values that expire after a fixed lifetime. Expired
	// entries are dropped on read, swept by Set at most once per lifetime, and
	// removed by StartCleanupTicker. Concurrent misses for the same key are not
	// coalesced.
	TTL[K comparable, V any] struct {
		mu        sync.Mutex
		items     map[K]entry[V]
		ttl       time.Duration
		now       func() time.Time
		lastSweep time.Time
		onHit     func()
		onMiss    func()
	}
)

func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *TTL[K, V]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *TTL[K, V]) {
		c.now = now
	}
}

// WithObserver reports hits and misses, typically to metrics counters.
func WithObserver[K comparable, V any](onHit func(), onMiss func()) Option[K, V] {
	return func(c *TTL[K, V]) {
		if onHit != nil {
			c.onHit = onHit
		}
		if onMiss != nil {
			c.onMiss = onMiss
		}
	}
}

func New[K comparable, V any](opts ...Option[K, V]) *TTL[K, V] {
	c := &TTL[K, V]{
		items:  make(map[K]entry[V]),
		ttl:    DefaultTTL,
		now:    time.Now,
		onHit:  func() {},
		onMiss: func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lastSweep = c.now()
	return c
}

func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if ok && c.now().Before(item.expires) {
		c.onHit()
		return item.data, true
	}
	if ok {
		delete(c.items, key)
	}

	c.onMiss()
	var zero V
	return zero, false
}

func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.ttl {
		c.removeExpiredLocked(now)
	}
	c.items[key] = entry[V]{data: value, expires: now.Add(c.ttl)}
}

// RemoveExpired drops every expired entry and returns how many were removed.
func (c *TTL[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeExpiredLocked(c.now())
}

func (c *TTL[K, V]) removeExpiredLocked(now time.Time) int {
	removed := 0
	for key, item := range c.items {
		if !now.Before(item.expires) {
			delete(c.items, key)
			removed++
		}
	}
	c.lastSweep = now
	return removed
}

// StartCleanupTicker runs RemoveExpired on a regular interval until ctx is cancelled.
func (c *TTL[K, V]) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.RemoveExpired(); removed > 0 {
				slog.Debug("expired cache entries removed", "count", removed)
			}
		}
	}
}

func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
