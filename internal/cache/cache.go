// Package cache provides the append-only memoization maps shared across
// checker-factory calls. Entries are never evicted or invalidated; a failed
// computation leaves no entry behind.
package cache

import (
	"sync"
)

// Map is a mutex-guarded string-keyed memo table. The zero value is not
// usable; construct with New so tests can hold isolated instances instead
// of ambient package state.
type Map struct {
	mu sync.Mutex
	m  map[string]any
}

// New returns an empty memo table.
func New() *Map {
	return &Map{m: make(map[string]any)}
}

// Get returns the cached value for key.
func (c *Map) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

// Set stores a value. The first writer wins: concurrent computations of the
// same key keep whichever entry landed first, so callers always observe one
// stable artifact per key.
func (c *Map) Set(key string, v any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.m[key]; ok {
		return prev
	}
	c.m[key] = v
	return v
}

// GetOrCompute returns the cached value for key, computing and caching it
// on a miss. The computation runs outside the lock; an error caches
// nothing.
func (c *Map) GetOrCompute(key string, compute func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	return c.Set(key, v), nil
}

// Len returns the number of cached entries.
func (c *Map) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}
