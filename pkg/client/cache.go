package client

import (
	"sync"
	"time"

	"pitchroom/internal/content/models"
)

// Cache is the per-client document cache. Entries are keyed by logical
// path plus query parameters, owned exclusively by one Client, and never
// shared across processes.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	maxIdle time.Duration
}

type cacheEntry struct {
	doc        models.Document
	fetchedAt  time.Time
	lastAccess time.Time
	stale      bool
	validated  bool
}

// Snapshot preserves an entry's state so a failed optimistic mutation can
// restore it exactly.
type Snapshot struct {
	doc       models.Document
	fetchedAt time.Time
	stale     bool
	validated bool
	existed   bool
}

// NewCache builds a cache whose entries are evicted after maxIdle without
// access.
func NewCache(maxIdle time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		maxIdle: maxIdle,
	}
}

// Fresh returns the cached document and its validation flag when the entry
// exists, is not stale, and was fetched within the staleness window. The
// flag survives caching so hits report the same provenance as the fetch
// that populated them.
func (c *Cache) Fresh(key string, window time.Duration) (models.Document, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.stale {
		return nil, false, false
	}
	now := time.Now()
	if now.Sub(e.fetchedAt) > window {
		return nil, false, false
	}
	e.lastAccess = now
	return e.doc.Clone(), e.validated, true
}

// Set stores a fresh copy of doc under key, remembering whether it passed
// schema validation.
func (c *Cache) Set(key string, doc models.Document, validated bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		doc:        doc.Clone(),
		fetchedAt:  now,
		lastAccess: now,
		validated:  validated,
	}
}

// MarkStale flags the entry so the next query refetches, without dropping
// the data.
func (c *Cache) MarkStale(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// Invalidate removes the entry entirely.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Get returns the cached document regardless of freshness. Used by tests
// and by rollback verification.
func (c *Cache) Get(key string) (models.Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.doc.Clone(), true
}

// Take captures the current entry state for later restoration.
func (c *Cache) Take(key string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		doc:       e.doc.Clone(),
		fetchedAt: e.fetchedAt,
		stale:     e.stale,
		validated: e.validated,
		existed:   true,
	}
}

// Restore puts a snapshot back, removing the entry when the snapshot
// predates it.
func (c *Cache) Restore(key string, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !snap.existed {
		delete(c.entries, key)
		return
	}
	c.entries[key] = &cacheEntry{
		doc:        snap.doc,
		fetchedAt:  snap.fetchedAt,
		lastAccess: time.Now(),
		stale:      snap.stale,
		validated:  snap.validated,
	}
}

// evict drops entries idle longer than maxIdle.
func (c *Cache) evict(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.Sub(e.lastAccess) > c.maxIdle {
			delete(c.entries, key)
		}
	}
}

// Len reports the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
