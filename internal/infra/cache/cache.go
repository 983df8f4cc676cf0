// Package cache provides a small in-memory TTL cache used for profile lookups.
package cache

import (
	"sync"
	"time"
)

// Recorder receives hit/miss events. *observability.Metrics satisfies it.
type Recorder interface {
	IncrCacheHit(cache string)
	IncrCacheMiss(cache string)
}

// Option configures an InMemory cache.
type Option func(*options)

type options struct {
	name     string
	recorder Recorder
	now      func() time.Time
}

// WithRecorder reports hits and misses under the given cache name.
func WithRecorder(name string, r Recorder) Option {
	return func(o *options) {
		o.name = name
		o.recorder = r
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

type entry[T any] struct {
	value     T
	expiresAt time.Time
}

// InMemory is a thread-safe in-memory cache with TTL.
type InMemory[T any] struct {
	mu    sync.RWMutex
	items map[string]entry[T]
	ttl   time.Duration
	opts  options

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new in-memory cache with the given TTL and starts a
// background sweeper. Call Close to stop it.
func New[T any](ttl time.Duration, opts ...Option) *InMemory[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &InMemory[T]{
		items: make(map[string]entry[T]),
		ttl:   ttl,
		opts:  o,
		stop:  make(chan struct{}),
	}
	if ttl > 0 {
		go c.sweep()
	}
	return c
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || c.opts.now().After(e.expiresAt) {
		c.record(false)
		var zero T
		return zero, false
	}
	c.record(true)
	return e.value, true
}

// Set stores a value in the cache with the configured TTL.
func (c *InMemory[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[T]{
		value:     value,
		expiresAt: c.opts.now().Add(c.ttl),
	}
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of stored entries, expired or not.
func (c *InMemory[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the background sweeper. It is safe to call more than once.
func (c *InMemory[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Purge removes every expired entry.
func (c *InMemory[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.now()
	for k, v := range c.items {
		if now.After(v.expiresAt) {
			delete(c.items, k)
		}
	}
}

func (c *InMemory[T]) sweep() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Purge()
		}
	}
}

func (c *InMemory[T]) record(hit bool) {
	if c.opts.recorder == nil {
		return
	}
	if hit {
		c.opts.recorder.IncrCacheHit(c.opts.name)
	} else {
		c.opts.recorder.IncrCacheMiss(c.opts.name)
	}
}
