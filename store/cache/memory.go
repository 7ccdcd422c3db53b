package cache

import (
	"context"
	"sync"
	"time"
)

// Config holds the configuration for the in-memory cache.
type Config struct {
	DefaultTTL      time.Duration // TTL used when Set is called with ttl <= 0
	CleanupInterval time.Duration // interval of the background expiry sweep
	MaxItems        int           // max entries; 0 means unbounded
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used in dev mode and tests. It honors
// the same contract as the Redis cache, including passive TTL expiry.
type MemoryCache struct {
	mu     sync.RWMutex
	data   map[string]memoryEntry
	config Config

	// now is replaceable in tests to step time without sleeping.
	now func() time.Time

	done chan struct{}
	once sync.Once
}

// NewMemory creates a new in-memory cache. A background janitor evicts
// expired entries; Close stops it.
func NewMemory(config Config) *MemoryCache {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 1 * time.Minute
	}

	c := &MemoryCache{
		data:   make(map[string]memoryEntry),
		config: config,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go c.janitor()
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false, nil
	}

	// Copy so callers cannot mutate the cached bytes.
	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.MaxItems > 0 && len(c.data) >= c.config.MaxItems {
		if _, exists := c.data[key]; !exists {
			c.evictLocked()
		}
	}

	c.data[key] = memoryEntry{
		value:     stored,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// SetClock replaces the time source. Test hook; not safe to call once the
// cache is in use.
func (c *MemoryCache) SetClock(now func() time.Time) {
	c.now = now
}

// Size returns the number of entries, including not-yet-swept expired ones.
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// evictLocked frees one slot: expired entries first, otherwise an arbitrary
// entry. Callers must hold the write lock.
func (c *MemoryCache) evictLocked() {
	now := c.now()
	for key, entry := range c.data {
		if now.After(entry.expiresAt) {
			delete(c.data, key)
			return
		}
	}
	for key := range c.data {
		delete(c.data, key)
		return
	}
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for key, entry := range c.data {
				if now.After(entry.expiresAt) {
					delete(c.data, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
