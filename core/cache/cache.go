// Package cache provides LRU caching for parse results.
package cache

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/FocuswithJustin/Linegra/core/gedcom"
)

// Cache is a generic LRU cache interface.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache.
	Get(key K) (V, bool)

	// Put stores a value in the cache.
	Put(key K, value V)

	// Remove removes a value from the cache.
	Remove(key K)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Size       int   `json:"size"`
	MaxSize    int   `json:"maxSize"`
	TotalBytes int64 `json:"totalBytes,omitempty"`
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries. Values below 1 use the
	// default.
	MaxSize int

	// TTL is the time-to-live for entries (0 = no expiration).
	TTL time.Duration

	// OnEvict is called when an entry leaves the cache.
	OnEvict func(key, value interface{})
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize: 100,
	}
}

// backend is the subset of the golang-lru caches this package drives.
type backend[K comparable, V any] interface {
	Add(key K, value V) bool
	Get(key K) (V, bool)
	Remove(key K) bool
	Purge()
	Len() int
}

// lruCache counts hits and misses around a golang-lru cache.
type lruCache[K comparable, V any] struct {
	inner     backend[K, V]
	maxSize   int
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewLRUCache creates a new LRU cache with the given configuration.
func NewLRUCache[K comparable, V any](config Config) Cache[K, V] {
	if config.MaxSize < 1 {
		config.MaxSize = DefaultConfig().MaxSize
	}
	var onEvict func(K, V)
	if config.OnEvict != nil {
		onEvict = func(k K, v V) { config.OnEvict(k, v) }
	}

	c := &lruCache[K, V]{maxSize: config.MaxSize}
	if config.TTL > 0 {
		c.inner = expirable.NewLRU[K, V](config.MaxSize, onEvict, config.TTL)
		return c
	}
	inner, err := lru.NewWithEvict[K, V](config.MaxSize, onEvict)
	if err != nil {
		// Only a non-positive size fails, which is ruled out above.
		panic(err)
	}
	c.inner = inner
	return c
}

// Get retrieves a value from the cache.
func (c *lruCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.inner.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Put stores a value in the cache.
func (c *lruCache[K, V]) Put(key K, value V) {
	if c.inner.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Remove removes a value from the cache.
func (c *lruCache[K, V]) Remove(key K) {
	c.inner.Remove(key)
}

// Clear removes all entries from the cache.
func (c *lruCache[K, V]) Clear() {
	c.inner.Purge()
}

// Len returns the number of entries in the cache.
func (c *lruCache[K, V]) Len() int {
	return c.inner.Len()
}

// Stats returns cache statistics.
func (c *lruCache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.inner.Len(),
		MaxSize:   c.maxSize,
	}
}

// ResultCache holds parse results keyed by the BLAKE3 fingerprint of the
// document they came from.
type ResultCache struct {
	cache Cache[string, *gedcom.Result]
}

// NewResultCache creates a new parse result cache.
func NewResultCache(config Config) *ResultCache {
	return &ResultCache{
		cache: NewLRUCache[string, *gedcom.Result](config),
	}
}

// NewDefaultResultCache creates a parse result cache with default configuration.
func NewDefaultResultCache() *ResultCache {
	config := DefaultConfig()
	config.MaxSize = 32 // results of large documents are big
	return NewResultCache(config)
}

// Get retrieves a result by document fingerprint.
func (c *ResultCache) Get(blake3 string) (*gedcom.Result, bool) {
	return c.cache.Get(blake3)
}

// Put stores a result.
func (c *ResultCache) Put(blake3 string, result *gedcom.Result) {
	c.cache.Put(blake3, result)
}

// Remove removes a result.
func (c *ResultCache) Remove(blake3 string) {
	c.cache.Remove(blake3)
}

// Clear removes all results.
func (c *ResultCache) Clear() {
	c.cache.Clear()
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	return c.cache.Len()
}

// Stats returns cache statistics.
func (c *ResultCache) Stats() Stats {
	return c.cache.Stats()
}
