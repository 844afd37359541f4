package counter

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is a process-local Counter used by tests and as a degraded
// single-instance fallback when Redis is not configured.
type MemoryCounter struct {
	mu       sync.Mutex
	values   map[string]int64
	expiries map[string]time.Time
	now      func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		values:   make(map[string]int64),
		expiries: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (c *MemoryCounter) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked(key)
	c.values[key]++
	return c.values[key], nil
}

func (c *MemoryCounter) SetTTL(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.values[key]; !ok {
		return nil
	}
	c.expiries[key] = c.now().Add(ttl)
	return nil
}

func (c *MemoryCounter) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, key)
	delete(c.expiries, key)
	return nil
}

func (c *MemoryCounter) expireLocked(key string) {
	if expiry, ok := c.expiries[key]; ok && !expiry.After(c.now()) {
		delete(c.values, key)
		delete(c.expiries, key)
	}
}
