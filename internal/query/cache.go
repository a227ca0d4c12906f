// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"container/list"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/apiqgo/internal/resource"
)

const (
	// DefaultMaxEntries bounds the cache when no size is given.
	DefaultMaxEntries = 1000
	// DefaultGCTime is how long an untouched entry survives.
	DefaultGCTime = 5 * time.Minute
)

// entry is the cache record for one key.
type entry struct {
	key         resource.Key
	state       State
	lastSuccess time.Time
	// generation is replaced by invalidation; results started under any
	// other generation are discarded.
	generation uint64
	inflight   bool
	stale      bool
	touched    time.Time
	elem       *list.Element
}

// Cache maps resource keys to their latest State. Its zero value is not
// usable; build one with NewCache. Only a Client writes to it.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	lru        *list.List // front is most recently used
	maxEntries int
	gcTime     time.Duration
	now        func() time.Time
	// lastGen is the highest generation handed out. Generations never repeat,
	// even for a key that was dropped and recreated.
	lastGen uint64
}

// CacheOption configures NewCache.
type CacheOption func(*Cache)

// WithMaxEntries bounds the number of entries. Zero or less means unbounded.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) { c.maxEntries = n }
}

// WithGCTime sets how long an entry may go untouched before it is collected.
// Zero or less disables collection.
func WithGCTime(d time.Duration) CacheOption {
	return func(c *Cache) { c.gcTime = d }
}

// WithCacheClock replaces time.Now.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// NewCache returns an empty Cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:    make(map[string]*entry),
		lru:        list.New(),
		maxEntries: DefaultMaxEntries,
		gcTime:     DefaultGCTime,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns the cached state for key without affecting recency.
func (c *Cache) Peek(key resource.Key) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.ID()]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Len is the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys lists cached keys, most recently used first.
func (c *Cache) Keys() []resource.Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]resource.Key, 0, len(c.entries))
	for el := c.lru.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry).key)
	}
	return keys
}

// lookup returns the fresh successful state for key, if there is one.
func (c *Cache) lookup(key resource.Key, staleTime time.Duration) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.ID()]
	if !ok || e.stale || e.state.Status != Success {
		return State{}, false
	}
	if c.now().Sub(e.lastSuccess) >= staleTime {
		return State{}, false
	}

	e.touched = c.now()
	c.lru.MoveToFront(e.elem)
	return e.state, true
}

// begin registers a retrieval for key and returns the generation it runs
// under. If force is set the generation is bumped first, orphaning any
// retrieval already in flight.
func (c *Cache) begin(key resource.Key, force bool) (gen uint64, started bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.collect()

	e := c.touch(key)
	if force {
		c.renew(e)
		e.inflight = false
	}
	if !e.inflight {
		e.inflight = true
		started = true
		e.state.Status = Pending
		e.state.Err = nil
	}
	return e.generation, started
}

// settled returns the outcome already recorded for gen, if the retrieval
// for it has finished.
func (c *Cache) settled(key resource.Key, gen uint64) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.ID()]
	if !ok || e.generation != gen || e.inflight {
		return State{}, false
	}
	return e.state, true
}

// settle records the outcome of a retrieval started under gen. It reports
// false, leaving the entry alone, when gen has been superseded or the entry
// was collected meanwhile.
func (c *Cache) settle(key resource.Key, gen uint64, st State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.ID()]
	if !ok || e.generation != gen {
		log.Debugf("discarding stale result for %s (generation %d)", key, gen)
		return false
	}

	e.inflight = false
	e.stale = false
	if st.Status == Success {
		e.lastSuccess = st.UpdatedAt
	}
	e.state = st
	e.touched = c.now()
	c.lru.MoveToFront(e.elem)
	return true
}

// invalidate marks matching entries stale and bumps their generation. It
// returns the keys that were affected.
func (c *Cache) invalidate(match func(resource.Key) bool) []resource.Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hit []resource.Key
	for _, e := range c.entries {
		if !match(e.key) {
			continue
		}
		c.renew(e)
		e.inflight = false
		e.stale = true
		hit = append(hit, e.key)
	}
	return hit
}

// clear drops every entry.
func (c *Cache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lru.Init()
}

// touch returns the entry for key, creating it if needed. c.mu must be held.
func (c *Cache) touch(key resource.Key) *entry {
	id := key.ID()
	if e, ok := c.entries[id]; ok {
		e.touched = c.now()
		c.lru.MoveToFront(e.elem)
		return e
	}

	e := &entry{key: key, state: pending(), touched: c.now()}
	c.renew(e)
	e.elem = c.lru.PushFront(e)
	c.entries[id] = e
	c.evict()
	return e
}

// renew gives e a generation no retrieval has used. c.mu must be held.
func (c *Cache) renew(e *entry) {
	c.lastGen++
	e.generation = c.lastGen
}

// evict trims the least recently used entries beyond maxEntries, skipping any
// with a retrieval in flight. The front entry is never evicted. c.mu must be
// held.
func (c *Cache) evict() {
	if c.maxEntries <= 0 {
		return
	}
	front := c.lru.Front()
	for el := c.lru.Back(); el != nil && el != front && len(c.entries) > c.maxEntries; {
		prev := el.Prev()
		if e := el.Value.(*entry); !e.inflight {
			c.remove(e)
			log.Debugf("evicted %s", e.key)
		}
		el = prev
	}
}

// collect drops entries untouched for longer than gcTime. c.mu must be held.
func (c *Cache) collect() {
	if c.gcTime <= 0 {
		return
	}
	cutoff := c.now().Add(-c.gcTime)
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if !e.touched.Before(cutoff) {
			// Everything nearer the front was touched more recently.
			break
		}
		if !e.inflight {
			c.remove(e)
			log.Debugf("collected %s", e.key)
		}
		el = prev
	}
}

func (c *Cache) remove(e *entry) {
	c.lru.Remove(e.elem)
	delete(c.entries, e.key.ID())
}
