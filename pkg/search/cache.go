package search

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"book-agent-be/pkg/store"
)

// Stats reports result-cache effectiveness.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// ResultCache bounds repeated retrieval work with a capacity-limited,
// time-bounded LRU keyed by (method, query, limit).
type ResultCache struct {
	lru    *expirable.LRU[string, []store.BookRef]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = 256
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, []store.BookRef](capacity, nil, ttl),
	}
}

func cacheKey(method, query string, limit int) string {
	return fmt.Sprintf("%s|%s|%d", method, query, limit)
}

func (c *ResultCache) Get(method, query string, limit int) ([]store.BookRef, bool) {
	if c == nil {
		return nil, false
	}
	results, ok := c.lru.Get(cacheKey(method, query, limit))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return results, ok
}

func (c *ResultCache) Put(method, query string, limit int, results []store.BookRef) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey(method, query, limit), results)
}

func (c *ResultCache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.lru.Len(),
	}
}
