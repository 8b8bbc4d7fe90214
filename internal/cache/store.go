// Package cache stores extracted token streams so unchanged files are not
// re-parsed on every comparison.
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Store defines the byte-level cache interface.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key joins key components with colons.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// NopStore never hits and discards writes.
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }
func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopStore) Delete(context.Context, string) error { return nil }
func (NopStore) Close() error { return nil }

// MemoryStore implements an in-process cache, used by the API server and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string]memoryEntry
	maxSize int
	seq     uint64
	now     func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	seq       uint64
}

// NewMemoryStore creates a memory store holding at most maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryStore{
		data:    make(map[string]memoryEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get retrieves a value from cache.
func (c *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[key]
	if !ok || c.expired(entry) {
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value with TTL. A zero TTL never expires.
func (c *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evictOldest()
	}

	c.seq++
	entry := memoryEntry{value: value, seq: c.seq}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.data[key] = entry
	return nil
}

// Delete removes a value from cache.
func (c *MemoryStore) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Close is a no-op for memory cache.
func (c *MemoryStore) Close() error { return nil }

func (c *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

// evictOldest drops an expired entry if there is one. Otherwise it drops
// the entry expiring first; entries without a TTL go only when none has
// one, oldest insertion first.
func (c *MemoryStore) evictOldest() {
	var (
		victim string
		best   memoryEntry
		found  bool
	)
	for key, entry := range c.data {
		if c.expired(entry) {
			delete(c.data, key)
			return
		}
		if !found || evictsBefore(entry, best) {
			victim, best, found = key, entry, true
		}
	}
	if found {
		delete(c.data, victim)
	}
}

func evictsBefore(a, b memoryEntry) bool {
	switch aPinned, bPinned := a.expiresAt.IsZero(), b.expiresAt.IsZero(); {
	case aPinned != bPinned:
		return bPinned
	case aPinned || a.expiresAt.Equal(b.expiresAt):
		return a.seq < b.seq
	default:
		return a.expiresAt.Before(b.expiresAt)
	}
}
