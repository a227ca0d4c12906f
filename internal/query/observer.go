// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"context"
	"sync"

	"github.com/staranto/apiqgo/internal/resource"
)

// Observer follows one key's state. It is what a view holds while mounted;
// Close it when the view goes away.
type Observer struct {
	client  *Client
	key     resource.Key
	mu      sync.Mutex
	state   State
	closed  bool
	changes chan State
}

// Query returns an Observer for key and, unless a fresh success is cached,
// starts (or joins) a retrieval for it.
func (c *Client) Query(ctx context.Context, key resource.Key) *Observer {
	o := &Observer{
		client:  c,
		key:     key,
		state:   pending(),
		changes: make(chan State, 1),
	}

	if key.IsZero() {
		o.state = c.invalid(key)
		return o
	}

	c.register(o)

	if st, ok := c.cache.lookup(key, c.staleTime); ok {
		o.deliver(st)
		return o
	}

	go c.Fetch(ctx, key)
	return o
}

// Key is the observed key.
func (o *Observer) Key() resource.Key {
	return o.key
}

// State is the latest state seen by the observer.
func (o *Observer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Changes delivers state transitions. Only the most recent undelivered state
// is kept. The channel is closed by Close.
func (o *Observer) Changes() <-chan State {
	return o.changes
}

// Wait blocks until the state is no longer pending or ctx ends. It consumes
// from Changes, so use one or the other.
func (o *Observer) Wait(ctx context.Context) (State, error) {
	for {
		if st := o.State(); !st.IsPending() {
			return st, nil
		}
		select {
		case _, ok := <-o.changes:
			if !ok {
				return o.State(), nil
			}
		case <-ctx.Done():
			return o.State(), ctx.Err()
		}
	}
}

// Refetch forces a new retrieval for the observed key.
func (o *Observer) Refetch(ctx context.Context) {
	if o.key.IsZero() {
		return
	}
	go o.client.Refetch(ctx, o.key)
}

// Close detaches the observer. Retrievals in flight continue, but their
// results no longer reach it.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.changes)
	o.mu.Unlock()

	o.client.unregister(o)
}

func (o *Observer) deliver(st State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.state = st
	select {
	case <-o.changes:
	default:
	}
	o.changes <- st
}

func (c *Client) register(o *Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := o.key.ID()
	if c.observers[id] == nil {
		c.observers[id] = make(map[*Observer]struct{})
	}
	c.observers[id][o] = struct{}{}
}

func (c *Client) unregister(o *Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := o.key.ID()
	delete(c.observers[id], o)
	if len(c.observers[id]) == 0 {
		delete(c.observers, id)
	}
}

func (c *Client) observed(key resource.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers[key.ID()]) > 0
}

func (c *Client) notify(key resource.Key, st State) {
	c.mu.Lock()
	targets := make([]*Observer, 0, len(c.observers[key.ID()]))
	for o := range c.observers[key.ID()] {
		targets = append(targets, o)
	}
	c.mu.Unlock()

	for _, o := range targets {
		o.deliver(st)
	}
}
