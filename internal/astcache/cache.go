// Package astcache keeps parsed markdown trees keyed by a fingerprint of the
// document text so unchanged documents are not parsed twice.
package astcache

import (
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/morozRed/deflink/internal/markdown"
)

// DefaultSize is the number of trees kept by Default.
const DefaultSize = 200

// Stats reports cache activity since creation.
type Stats struct {
	Size      int    `json:"size"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// Cache is a fixed-size LRU of parsed trees. A single mutex serializes every
// lookup and insert; trees are immutable so they are shared without copying.
type Cache struct {
	mu        sync.Mutex
	lru       *simplelru.LRU[uint64, *markdown.Tree]
	capacity  int
	hits      uint64
	misses    uint64
	evictions uint64
	purging   bool
	parse     func(string) *markdown.Tree
}

// New creates a cache holding at most size trees.
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	c := &Cache{capacity: size, parse: markdown.Parse}
	lru, err := simplelru.NewLRU[uint64, *markdown.Tree](size, func(uint64, *markdown.Tree) {
		if !c.purging {
			c.evictions++
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}
	c.lru = lru
	return c, nil
}

// Default is the process-wide cache used when callers do not bring their own.
var Default = mustNew(DefaultSize)

func mustNew(size int) *Cache {
	c, err := New(size)
	if err != nil {
		panic(err)
	}
	return c
}

// Fingerprint is the cache key for content.
func Fingerprint(content string) uint64 {
	return xxhash.Sum64String(content)
}

// GetOrParse returns the cached tree for content, parsing and storing it on
// a miss. A cached tree parsed from text of a different length is treated
// as a fingerprint collision and replaced.
func (c *Cache) GetOrParse(content string) *markdown.Tree {
	key := Fingerprint(content)

	c.mu.Lock()
	if tree, ok := c.lru.Get(key); ok && tree.Len() == len(content) {
		c.hits++
		c.mu.Unlock()
		return tree
	}
	c.misses++
	c.mu.Unlock()

	tree := c.parse(content)

	c.mu.Lock()
	c.lru.Add(key, tree)
	c.mu.Unlock()
	return tree
}

// ProseSpans returns the prose spans of content through the cache.
func (c *Cache) ProseSpans(content string) []markdown.Span {
	return c.GetOrParse(content).ProseSpans()
}

// Len returns the number of cached trees.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops every cached tree. Dropped trees are not counted as
// evictions.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purging = true
	c.lru.Purge()
	c.purging = false
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
