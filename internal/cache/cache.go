// Package cache provides the small TTL cache injected into components that
// previously leaned on process-wide maps. Tests use Noop.
package cache

import (
	"sync"
	"time"
)

type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Expire(key string)
}

type entry struct {
	value    any
	deadline time.Time
}

// Memory is a mutex-guarded in-process cache with per-entry TTL.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

func (c *Memory) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *Memory) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.deadline = time.Now().Add(ttl)
	}
	c.entries[key] = e
}

func (c *Memory) Expire(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(string) (any, bool)         { return nil, false }
func (Noop) Set(string, any, time.Duration) {}
func (Noop) Expire(string)                  {}
