package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"legalrag/internal/domain"
	"legalrag/internal/port"
)

// QueryCache is an LRU cache of search results with a TTL. Entries made
// before the last Invalidate are never returned.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	storeGen uint64
	now      func() time.Time
}

type cacheEntry struct {
	results   []domain.RetrievedMatch
	timestamp time.Time
	storeGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(query string, topK int, filter domain.Filter) string {
	data := []byte(query)
	data = append(data, 0)
	data = strconv.AppendInt(data, int64(topK), 10)
	data = append(data, 0)
	data = append(data, filter.Key()...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, topK int, filter domain.Filter) ([]domain.RetrievedMatch, bool) {
	key := cacheKey(query, topK, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return nil, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.storeGen != c.storeGen {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return nil, false
	}

	c.moveToEnd(key)
	return entry.results, true
}

// Generation returns a counter that Invalidate advances.
func (c *QueryCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.storeGen
}

func (c *QueryCache) Put(query string, topK int, filter domain.Filter, results []domain.RetrievedMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(query, topK, filter, results)
}

// PutAt stores results read at generation gen. They are dropped if the
// cache was invalidated since.
func (c *QueryCache) PutAt(gen uint64, query string, topK int, filter domain.Filter, results []domain.RetrievedMatch) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.storeGen {
		return false
	}
	c.put(query, topK, filter, results)
	return true
}

func (c *QueryCache) put(query string, topK int, filter domain.Filter, results []domain.RetrievedMatch) {
	key := cacheKey(query, topK, filter)
	entry := &cacheEntry{
		results:   results,
		timestamp: c.now(),
		storeGen:  c.storeGen,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.storeGen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedStore serves repeated searches from a QueryCache and invalidates
// it whenever the underlying store changes.
type CachedStore struct {
	port.Store
	cache *QueryCache
}

func NewCachedStore(store port.Store, cache *QueryCache) *CachedStore {
	return &CachedStore{
		Store: store,
		cache: cache,
	}
}

func (s *CachedStore) Search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.RetrievedMatch, error) {
	if results, hit := s.cache.Get(query, topK, filter); hit {
		return results, nil
	}

	gen := s.cache.Generation()
	results, err := s.Store.Search(ctx, query, topK, filter)
	if err != nil {
		return nil, err
	}

	s.cache.PutAt(gen, query, topK, filter, results)
	return results, nil
}

func (s *CachedStore) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	defer s.cache.Invalidate()
	return s.Store.Add(ctx, chunks)
}

func (s *CachedStore) Clear(ctx context.Context) error {
	defer s.cache.Invalidate()
	return s.Store.Clear(ctx)
}
