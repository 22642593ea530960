// Package ttlcache provides a generic key/value store whose entries are
// evicted after a fixed time-to-live, with listener fan-out on eviction.
package ttlcache

import (
	"errors"
	"sync"
	"time"
)

// ErrInvalidTTL is returned by New when the TTL is not a positive duration.
var ErrInvalidTTL = errors.New("ttlcache: ttl must be a positive duration")

// Listener receives the key and value of an entry that was evicted because
// its TTL elapsed. By the time a listener runs the entry has already been
// removed, so re-reading the cache from inside a listener never observes a
// half-evicted entry.
type Listener[K comparable, V any] func(key K, value V)

// Cache is a TTL-evicting map. Every Set (re)starts a fresh countdown for
// its key; reads do not touch the timer. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	ttl time.Duration

	mu        sync.Mutex
	entries   map[K]*entry[V]
	listeners map[int]Listener[K, V]
	nextID    int
}

type entry[V any] struct {
	value V
	timer *time.Timer
}

// New creates a cache whose entries expire after ttl
func New[K comparable, V any](ttl time.Duration) (*Cache[K, V], error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return &Cache[K, V]{
		ttl:       ttl,
		entries:   make(map[K]*entry[V]),
		listeners: make(map[int]Listener[K, V]),
	}, nil
}

// Set inserts or overwrites the entry for key and restarts its countdown.
// A timer scheduled by an earlier Set for the same key is cancelled; only
// the most recently scheduled timer may evict the key.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		old.timer.Stop()
	}

	e := &entry[V]{value: value}
	e.timer = time.AfterFunc(c.ttl, func() { c.expire(key, e) })
	c.entries[key] = e
}

// Get returns the value for key without affecting its timer
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Has reports whether key is present without affecting its timer
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[key]
	return ok
}

// Pop removes and returns the entry for key as a single step. The eviction
// timer is cancelled and no listeners run. This is the lookup the
// coordinator uses so that exactly one of the confirmation and timeout
// paths wins for a given key.
func (c *Cache[K, V]) Pop(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	e.timer.Stop()
	delete(c.entries, key)
	return e.value, true
}

// Delete removes the entry for key and cancels its timer. Deleting an
// absent key is a no-op and returns false.
func (c *Cache[K, V]) Delete(key K) bool {
	_, ok := c.Pop(key)
	return ok
}

// Clear cancels all timers and empties the cache without notifying listeners
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.entries {
		e.timer.Stop()
	}
	c.entries = make(map[K]*entry[V])
}

// Len returns the number of live entries
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// OnExpired registers an eviction listener and returns an id for OffExpired.
// Multiple listeners may be registered; each eviction is fanned out to all
// of them.
func (c *Cache[K, V]) OnExpired(fn Listener[K, V]) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return id
}

// OffExpired removes a previously registered listener
func (c *Cache[K, V]) OffExpired(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.listeners, id)
}

// expire runs when a scheduled timer fires. The timer may have been
// superseded by a later Set for the same key while its callback was already
// queued; the identity check against the live entry detects that and makes
// the stale firing a no-op. The entry is removed before any listener runs,
// and listeners are invoked outside the lock so they may call back into the
// cache.
func (c *Cache[K, V]) expire(key K, e *entry[V]) {
	c.mu.Lock()
	current, ok := c.entries[key]
	if !ok || current != e {
		c.mu.Unlock()
		return
	}
	delete(c.entries, key)

	fns := make([]Listener[K, V], 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(key, e.value)
	}
}
