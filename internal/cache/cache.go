// Package cache provides a bounded, TTL-expiring, LRU-evicting in-memory
// cache keyed by a normalized-query hash. It shields rate-limited lookups
// (market data, web search) from repeated identical queries, and doubles as
// the short-lived document-blob store between upload and analysis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxSize       = 256
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

var keyWhitespaceRe = regexp.MustCompile(`\s+`)

// Key derives the storage key for a query: lowercase, trimmed, internal
// whitespace collapsed, then a truncated SHA-256 digest so raw queries are
// never retained.
func Key(query string) string {
	normalized := keyWhitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:16]
}

type entry[T any] struct {
	data       T
	createdAt  time.Time
	expiresAt  time.Time
	lastAccess uint64
}

// Cache is a bounded LRU+TTL cache. A single mutex guards the entry map and
// the access ordering; the background sweep takes the same lock.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	maxSize int
	ttl     time.Duration
	counter uint64
	clock   func() time.Time

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

// New creates a cache and starts its background expiry sweep. Non-positive
// arguments fall back to package defaults. Call Close to stop the sweeper.
func New[T any](maxSize int, ttl, sweepInterval time.Duration) *Cache[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}

	c := &Cache[T]{
		entries:       make(map[string]*entry[T], maxSize),
		maxSize:       maxSize,
		ttl:           ttl,
		clock:         time.Now,
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Get returns the cached payload for query. Expired entries are removed
// lazily and reported as misses; a hit bumps the entry's access counter.
func (c *Cache[T]) Get(query string) (T, bool) {
	var zero T
	key := Key(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.clock().After(e.expiresAt) {
		delete(c.entries, key)
		return zero, false
	}

	c.counter++
	e.lastAccess = c.counter
	return e.data, true
}

// Set stores a payload under the query's derived key with an absolute
// expiry of now+TTL. At capacity, the single least-recently-accessed entry
// is evicted first.
func (c *Cache[T]) Set(query string, data T) {
	key := Key(query)
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRULocked()
	}

	c.counter++
	c.entries[key] = &entry[T]{
		data:       data,
		createdAt:  now,
		expiresAt:  now.Add(c.ttl),
		lastAccess: c.counter,
	}
}

// Delete removes the entry for query, reporting whether it was present.
func (c *Cache[T]) Delete(query string) bool {
	key := Key(query)

	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[T], c.maxSize)
}

// GetOrFill returns the cached payload or runs fill and stores the result.
// Fill errors are returned without caching, so a transient failure is
// retried on the next identical query rather than poisoned into the cache.
func (c *Cache[T]) GetOrFill(ctx context.Context, query string, fill func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(query); ok {
		return v, nil
	}

	v, err := fill(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Set(query, v)
	return v, nil
}

// Stats reports cache occupancy and entry-age extremes in minutes.
type Stats struct {
	TotalEntries          int     `json:"total_entries"`
	MaxSize               int     `json:"max_size"`
	TTLMinutes            float64 `json:"ttl_minutes"`
	OldestEntryAgeMinutes float64 `json:"oldest_entry_age_minutes"`
	NewestEntryAgeMinutes float64 `json:"newest_entry_age_minutes"`
}

// GetStats returns a snapshot of the cache state.
func (c *Cache[T]) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		TotalEntries: len(c.entries),
		MaxSize:      c.maxSize,
		TTLMinutes:   c.ttl.Minutes(),
	}
	if len(c.entries) == 0 {
		return s
	}

	now := c.clock()
	first := true
	for _, e := range c.entries {
		age := now.Sub(e.createdAt).Minutes()
		if first {
			s.OldestEntryAgeMinutes = age
			s.NewestEntryAgeMinutes = age
			first = false
			continue
		}
		if age > s.OldestEntryAgeMinutes {
			s.OldestEntryAgeMinutes = age
		}
		if age < s.NewestEntryAgeMinutes {
			s.NewestEntryAgeMinutes = age
		}
	}
	return s
}

// Close stops the background sweep. The cache remains usable afterward.
func (c *Cache[T]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictLRULocked removes the entry with the lowest access counter.
// Caller holds c.mu.
func (c *Cache[T]) evictLRULocked() {
	var victim string
	var lowest uint64
	first := true
	for key, e := range c.entries {
		if first || e.lastAccess < lowest {
			victim = key
			lowest = e.lastAccess
			first = false
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

func (c *Cache[T]) sweepLoop() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if removed := c.sweepExpired(); removed > 0 {
				zap.L().Debug("cache: sweep removed expired entries",
					zap.Int("removed", removed),
				)
			}
		}
	}
}

// sweepExpired proactively removes all expired entries, bounding memory
// even under a read-light workload.
func (c *Cache[T]) sweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	removed := 0
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
