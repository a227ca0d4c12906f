// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/apiqgo/internal/fetch"
	"github.com/staranto/apiqgo/internal/resource"
)

var errNotJSON = errors.New("body is not valid JSON")

// Store persists successful bodies beyond the life of a Client. A fresh
// stored body satisfies a fetch without a network call.
type Store interface {
	Read(key resource.Key) (data []byte, modTime time.Time, ok bool)
	Write(key resource.Key, data []byte) error
	Remove(key resource.Key) error
}

// Client resolves resource keys through a Fetcher and a shared Cache.
type Client struct {
	fetcher   fetch.Fetcher
	cache     *Cache
	store     Store
	prefix    string
	staleTime time.Duration
	now       func() time.Time
	metrics   *Metrics

	sf singleflight.Group
	// order serializes a cache write with its notification so observers see
	// transitions in the order the cache applied them.
	order sync.Mutex

	mu        sync.Mutex
	observers map[string]map[*Observer]struct{}
}

// Option configures NewClient.
type Option func(*Client)

// WithCache shares an existing cache between clients.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithPrefix sets the resource-root prefix. The default is
// resource.DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(c *Client) { c.prefix = prefix }
}

// WithStaleTime sets how long a success stays fresh. The default, zero,
// means every Fetch goes to the network unless a retrieval is in flight.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithStore attaches persistent storage for successful bodies.
func WithStore(store Store) Option {
	return func(c *Client) { c.store = store }
}

// WithMetrics records cache and retrieval counters in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithClock replaces time.Now for freshness decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient returns a Client reading through f.
func NewClient(f fetch.Fetcher, opts ...Option) *Client {
	c := &Client{
		fetcher:   f,
		prefix:    resource.DefaultPrefix,
		now:       time.Now,
		observers: make(map[string]map[*Observer]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = NewCache(WithCacheClock(c.now))
	}
	return c
}

// Cache exposes the client's cache for reads.
func (c *Client) Cache() *Cache {
	return c.cache
}

// Fetch returns the settled state for key. A fresh cached success is returned
// immediately; otherwise the caller joins the in-flight retrieval for key or
// starts one. If ctx ends first, the retrieval keeps going and the current
// (pending) cached state is returned.
func (c *Client) Fetch(ctx context.Context, key resource.Key) State {
	return c.fetch(ctx, key, false)
}

// Refetch starts a new generation for key, ignoring freshness and any stored
// body. A retrieval already in flight for key is orphaned.
func (c *Client) Refetch(ctx context.Context, key resource.Key) State {
	return c.fetch(ctx, key, true)
}

func (c *Client) fetch(ctx context.Context, key resource.Key, force bool) State {
	if key.IsZero() {
		return c.invalid(key)
	}

	if !force {
		if st, ok := c.cache.lookup(key, c.staleTime); ok {
			log.Debugf("cache hit: %s", key)
			c.metrics.hit("memory")
			return st
		}
	}

	c.order.Lock()
	gen, started := c.cache.begin(key, force)
	if started {
		c.notify(key, pending())
	}
	c.order.Unlock()

	return c.join(ctx, key, gen, force)
}

// join waits on the retrieval for key under gen, starting it if no caller
// has.
func (c *Client) join(ctx context.Context, key resource.Key, gen uint64, force bool) State {
	call := fmt.Sprintf("%s#%d", key.ID(), gen)
	ch := c.sf.DoChan(call, func() (any, error) {
		// The flight this caller meant to join may have finished between
		// begin and DoChan; its result stands for the whole generation.
		if st, ok := c.cache.settled(key, gen); ok {
			return st, nil
		}

		// The retrieval outlives any single caller.
		st := c.retrieve(context.WithoutCancel(ctx), key, !force)

		c.order.Lock()
		defer c.order.Unlock()
		if c.cache.settle(key, gen, st) {
			c.notify(key, st)
		} else {
			c.metrics.discard()
		}
		return st, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			log.Debugf("shared retrieval: %s", key)
			c.metrics.share()
		}
		return res.Val.(State)
	case <-ctx.Done():
		st, _ := c.cache.Peek(key)
		return st
	}
}

// retrieve performs the network read for key. useStore allows a fresh
// persisted body to stand in for the network.
func (c *Client) retrieve(ctx context.Context, key resource.Key, useStore bool) State {
	if useStore && c.store != nil && c.staleTime > 0 {
		if raw, mod, ok := c.store.Read(key); ok && c.now().Sub(mod) < c.staleTime {
			if data, err := decode(raw); err == nil {
				log.Debugf("store hit: %s", key)
				c.metrics.hit("store")
				return State{Status: Success, Data: data, Raw: raw, UpdatedAt: mod}
			}
		}
	}

	log.Debugf("cache miss: %s", key)

	start := time.Now()
	raw, err := c.fetcher.Get(ctx, key.URL("", c.prefix))
	c.metrics.miss(time.Since(start))
	if err != nil {
		qe := classify(key, err)
		log.WithError(err).Debugf("%s: %s", qe.Kind, key)
		c.metrics.fail(qe.Kind)
		return State{Status: Failed, Err: qe, UpdatedAt: c.now()}
	}

	data, err := decode(raw)
	if err != nil {
		c.metrics.fail(ParseFailure)
		return State{
			Status:    Failed,
			Err:       &Error{Key: key.Joined(), Kind: ParseFailure, Err: err},
			UpdatedAt: c.now(),
		}
	}

	if c.store != nil {
		if err := c.store.Write(key, raw); err != nil {
			log.WithError(err).Warnf("failed to persist %s", key)
		}
	}

	return State{Status: Success, Data: data, Raw: raw, UpdatedAt: c.now()}
}

// Invalidate marks key stale, discards any in-flight result for it and
// refetches it if anything is observing it.
func (c *Client) Invalidate(key resource.Key) {
	c.invalidate(func(k resource.Key) bool { return k.Equal(key) })
	if c.store != nil && !key.IsZero() {
		if err := c.store.Remove(key); err != nil {
			log.WithError(err).Warnf("failed to remove stored %s", key)
		}
	}
}

// InvalidatePrefix invalidates every cached key whose leading segments equal
// prefix's segments.
func (c *Client) InvalidatePrefix(prefix resource.Key) {
	for _, k := range c.invalidate(func(k resource.Key) bool { return k.HasPrefix(prefix) }) {
		if c.store != nil {
			if err := c.store.Remove(k); err != nil {
				log.WithError(err).Warnf("failed to remove stored %s", k)
			}
		}
	}
}

// Clear drops every cache entry. Observers keep their last state.
func (c *Client) Clear() {
	c.cache.clear()
}

func (c *Client) invalidate(match func(resource.Key) bool) []resource.Key {
	keys := c.cache.invalidate(match)
	for _, k := range keys {
		log.Debugf("invalidated %s", k)
		if c.observed(k) {
			go c.Fetch(context.Background(), k)
		}
	}
	return keys
}

func (c *Client) invalid(key resource.Key) State {
	return State{
		Status:    Failed,
		Err:       &Error{Key: key.Joined(), Kind: InvalidKey, Err: resource.ErrInvalidKey},
		UpdatedAt: c.now(),
	}
}

// decode parses a JSON body into generic Go values.
func decode(raw []byte) (any, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errNotJSON
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
