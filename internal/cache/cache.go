package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"document-qa/internal/models"
)

// Params is the retrieval parameter set that, together with the query text,
// identifies a cache entry. Distinct parameters for the same query text are
// distinct entries.
type Params struct {
	K               int
	FetchK          int
	ScoreThreshold  float64
	Diversify       bool
	DiversityWeight float64
}

func (p Params) canonical() string {
	return fmt.Sprintf("k=%d;fetch_k=%d;threshold=%.4f;diversify=%t;weight=%.4f",
		p.K, p.FetchK, p.ScoreThreshold, p.Diversify, p.DiversityWeight)
}

// Key hashes the query text with the canonical parameter serialization.
func Key(query string, params Params) string {
	sum := sha256.Sum256([]byte(query + "|" + params.canonical()))
	return hex.EncodeToString(sum[:])
}

type entry struct {
	key       string
	query     string
	result    models.RetrievalResult
	createdAt time.Time
	hits      int
}

// Stats are cumulative and monotonic for the process lifetime.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Evictions   uint64
	Expirations uint64
}

// Cache is a bounded LRU with per-entry TTL in front of the retriever. One
// mutex covers both the key table and the recency list so no partial state is
// ever observable; an entry in the table is always in the list and vice versa.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*list.Element
	ll       *list.List
	stats    Stats

	// now is swappable in tests
	now func() time.Time
}

func New(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 64
	}
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element, capacity),
		ll:       list.New(),
		now:      time.Now,
	}
}

// Get returns the cached result for (query, params) and bumps its recency.
// Expired entries are dropped lazily here.
func (c *Cache) Get(query string, params Params) (models.RetrievalResult, bool) {
	key := Key(query, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return models.RetrievalResult{}, false
	}
	ent := elem.Value.(*entry)
	if c.ttl > 0 && c.now().Sub(ent.createdAt) >= c.ttl {
		c.removeLocked(elem)
		c.stats.Expirations++
		c.stats.Misses++
		return models.RetrievalResult{}, false
	}
	c.ll.MoveToFront(elem)
	ent.hits++
	c.stats.Hits++
	return ent.result, true
}

// Put stores a fresh result, evicting the least-recently-used entry when the
// cache is full and the key is new.
func (c *Cache) Put(query string, params Params, result models.RetrievalResult) {
	key := Key(query, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		ent.result = result
		ent.createdAt = c.now()
		c.ll.MoveToFront(elem)
		return
	}
	if c.ll.Len() >= c.capacity {
		if tail := c.ll.Back(); tail != nil {
			c.removeLocked(tail)
			c.stats.Evictions++
		}
	}
	elem := c.ll.PushFront(&entry{
		key:       key,
		query:     query,
		result:    result,
		createdAt: c.now(),
	})
	c.items[key] = elem
}

// Invalidate drops every entry for the given query text, across all parameter
// combinations. An empty query drops everything.
func (c *Cache) Invalidate(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if query == "" {
		c.items = make(map[string]*list.Element, c.capacity)
		c.ll = list.New()
		return
	}
	for elem := c.ll.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*entry).query == query {
			c.removeLocked(elem)
		}
		elem = next
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	c.ll.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

// Len reports the current number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Stats returns a snapshot of the cumulative counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
