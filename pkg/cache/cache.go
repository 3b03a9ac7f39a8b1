// Package cache provides the TTL-bounded lookup caches used to avoid
// redundant catalog and filesystem work. Caches are best-effort accelerators:
// the catalog remains the source of truth and entries expire by TTL only,
// never by proactive invalidation from other processes.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is the capability handed to components that memoize lookups.
// Implementations must be safe for concurrent use.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Invalidate(key K)
}

// TTL is an expirable-LRU backed Cache.
type TTL[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewTTL creates a cache holding at most capacity entries, each expiring
// ttl after insertion.
func NewTTL[K comparable, V any](capacity int, ttl time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		lru: expirable.NewLRU[K, V](capacity, nil, ttl),
	}
}

// Get returns the cached value for key, if present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Set inserts or refreshes the value for key.
func (c *TTL[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Invalidate drops the entry for key, if any.
func (c *TTL[K, V]) Invalidate(key K) {
	c.lru.Remove(key)
}

// Disabled is a Cache that stores nothing. Tests inject it to force every
// lookup through to the catalog.
type Disabled[K comparable, V any] struct{}

// NewDisabled returns a cache that never hits.
func NewDisabled[K comparable, V any]() Disabled[K, V] {
	return Disabled[K, V]{}
}

func (Disabled[K, V]) Get(K) (V, bool) {
	var zero V
	return zero, false
}

func (Disabled[K, V]) Set(K, V) {}

func (Disabled[K, V]) Invalidate(K) {}
