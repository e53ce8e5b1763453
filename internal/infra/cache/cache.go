package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/oracare/oracare-api/internal/domain/analysis"
)

// ResultCache memoizes classification results per image fingerprint so an
// unchanged image does not trigger a second remote call within a session.
//
// Eviction is insertion-order FIFO: inserting beyond capacity removes the
// oldest-inserted entry, and reads do not refresh recency. Entries older than
// the TTL are treated as misses and dropped on access.
//
// The cache is explicitly constructed and injected into the analysis service;
// there is no package-level instance. All operations are mutex-guarded so
// concurrent requests cannot race an eviction.
type ResultCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = oldest inserted
	capacity int
	ttl      time.Duration
	now      func() time.Time

	hits   uint64
	misses uint64
}

type entry struct {
	fingerprint string
	result      analysis.ClassificationResult
	createdAt   time.Time
}

const (
	DefaultCapacity = 100
	DefaultTTL      = 24 * time.Hour
)

func New(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock overrides the time source. Test hook.
func (c *ResultCache) WithClock(now func() time.Time) *ResultCache {
	c.now = now
	return c
}

// Get returns the cached result for a fingerprint. Expired entries count as
// misses and are removed.
func (c *ResultCache) Get(fingerprint string) (analysis.ClassificationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[fingerprint]
	if !ok {
		c.misses++
		return analysis.ClassificationResult{}, false
	}
	e := el.Value.(*entry)
	if c.now().Sub(e.createdAt) >= c.ttl {
		c.remove(el)
		c.misses++
		return analysis.ClassificationResult{}, false
	}
	c.hits++
	return e.result, true
}

// Put stores a result. Re-inserting an existing fingerprint refreshes the
// entry and moves it to the back of the eviction order.
func (c *ResultCache) Put(fingerprint string, result analysis.ClassificationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[fingerprint]; ok {
		c.remove(el)
	}
	for c.order.Len() >= c.capacity {
		c.remove(c.order.Front())
	}
	el := c.order.PushBack(&entry{
		fingerprint: fingerprint,
		result:      result,
		createdAt:   c.now(),
	})
	c.entries[fingerprint] = el
}

// Len reports the current number of entries, expired or not.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit/miss counters for the metrics endpoint.
func (c *ResultCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *ResultCache) remove(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.entries, e.fingerprint)
	c.order.Remove(el)
}
