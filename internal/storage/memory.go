// Package storage provides recipe cache implementations for the backend:
// in memory, Redis and SQLite. All of them store search results by query
// key with a time to live.
package storage

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/recipevoice/internal/domain"
	"github.com/hammamikhairi/recipevoice/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeCache = (*MemoryCache)(nil)

type memoryEntry struct {
	recipes []domain.Recipe
	expires time.Time // zero means never
}

// MemoryCache is an in-process recipe cache. Safe for concurrent access.
// Expired entries are dropped lazily on read and by Purge.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
	log     *logger.Logger
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache(log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		log:     log,
	}
}

// Put stores recipes under key. A ttl of zero or less never expires.
func (c *MemoryCache) Put(ctx context.Context, key string, recipes []domain.Recipe, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{recipes: copyRecipes(recipes)}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.entries[key] = e
	c.log.Debug("cache: stored %s (%d recipes, ttl=%s)", key, len(recipes), ttl)
	return nil
}

// Get returns the recipes stored under key, or domain.ErrNotFound when
// there is none or it has expired.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]domain.Recipe, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.log.Debug("cache: %s expired", key)
		return nil, domain.ErrNotFound
	}
	return copyRecipes(e.recipes), nil
}

// Delete removes key. Missing keys are not an error.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Purge drops every expired entry and returns how many went.
func (c *MemoryCache) Purge(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var n int64
	for k, e := range c.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op, so MemoryCache can stand in wherever a closable
// cache is expected.
func (c *MemoryCache) Close() error { return nil }

func copyRecipes(in []domain.Recipe) []domain.Recipe {
	if in == nil {
		return []domain.Recipe{}
	}
	out := make([]domain.Recipe, len(in))
	copy(out, in)
	return out
}
