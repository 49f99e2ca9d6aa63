package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrCacheMiss is returned when a key is not cached
var ErrCacheMiss = errors.New("cache miss")

// SearchCache caches the candidate flight ids of a route on a date.
// Seat availability is never cached.
type SearchCache interface {
	GetFlightIDs(ctx context.Context, key string) ([]string, error)
	SetFlightIDs(ctx context.Context, key string, ids []string) error
	Invalidate(ctx context.Context, keys ...string) error
	Close() error
}

// GenerateSearchCacheKey generates a cache key for flight search results (origin, destination, date only)
func GenerateSearchCacheKey(origin, destination, date string) string {
	return fmt.Sprintf("flight_search:%s:%s:%s", strings.ToUpper(origin), strings.ToUpper(destination), date)
}

type memoryEntry struct {
	ids       []string
	expiresAt time.Time
}

// MemorySearchCache is an in-process SearchCache with expiry
type MemorySearchCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySearchCache creates an in-process search cache
func NewMemorySearchCache(ttl time.Duration) *MemorySearchCache {
	return &MemorySearchCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// GetFlightIDs returns the cached ids or ErrCacheMiss
func (c *MemorySearchCache) GetFlightIDs(_ context.Context, key string) ([]string, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || (c.ttl > 0 && !c.now().Before(entry.expiresAt)) {
		return nil, ErrCacheMiss
	}
	return append([]string(nil), entry.ids...), nil
}

// SetFlightIDs stores ids under key
func (c *MemorySearchCache) SetFlightIDs(_ context.Context, key string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{
		ids:       append([]string(nil), ids...),
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Invalidate removes keys
func (c *MemorySearchCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// Close is a no-op
func (c *MemorySearchCache) Close() error { return nil }

// Len reports how many entries are held, expired or not
func (c *MemorySearchCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// NoopSearchCache never holds anything
type NoopSearchCache struct{}

func (NoopSearchCache) GetFlightIDs(context.Context, string) ([]string, error) {
	return nil, ErrCacheMiss
}

func (NoopSearchCache) SetFlightIDs(context.Context, string, []string) error { return nil }

func (NoopSearchCache) Invalidate(context.Context, ...string) error { return nil }

func (NoopSearchCache) Close() error { return nil }
