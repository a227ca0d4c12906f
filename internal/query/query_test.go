// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package query

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/apiqgo/internal/fetch"
	"github.com/staranto/apiqgo/internal/resource"
)

// fakeFetcher records calls and answers through handler. n is the 1-based
// call number.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	handler func(n int, path string) ([]byte, error)
}

func (f *fakeFetcher) Get(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, path)
	n := len(f.calls)
	f.mu.Unlock()
	return f.handler(n, path)
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// routes answers by path; unknown paths are 404s.
func routes(bodies map[string]string) func(int, string) ([]byte, error) {
	return func(_ int, path string) ([]byte, error) {
		if b, ok := bodies[path]; ok {
			return []byte(b), nil
		}
		return nil, &fetch.StatusError{Target: path, Status: http.StatusNotFound}
	}
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestFetch_Success(t *testing.T) {
	f := &fakeFetcher{handler: routes(map[string]string{"/api/profile": `{"id":1}`})}
	c := NewClient(f)

	st := c.Fetch(context.Background(), resource.MustNew("profile"))

	require.Equal(t, Success, st.Status, "err: %v", st.Err)
	assert.Equal(t, map[string]any{"id": float64(1)}, st.Data)
	assert.JSONEq(t, `{"id":1}`, string(st.Raw))
	assert.Equal(t, []string{"/api/profile"}, f.Calls())
}

func TestFetch_Errors(t *testing.T) {
	tests := []struct {
		name       string
		key        resource.Key
		handler    func(int, string) ([]byte, error)
		wantKind   Kind
		wantStatus int
		wantInMsg  string
	}{
		{
			name:       "failing status",
			key:        resource.MustNew("orders", "7"),
			handler:    routes(nil),
			wantKind:   HTTPError,
			wantStatus: http.StatusNotFound,
			wantInMsg:  "orders/7",
		},
		{
			name: "no response",
			key:  resource.MustNew("orders", "8"),
			handler: func(int, string) ([]byte, error) {
				return nil, &fetch.NetworkError{Target: "/api/orders/8", Err: errors.New("connection refused")}
			},
			wantKind:  NetworkFailure,
			wantInMsg: "orders/8",
		},
		{
			name: "undecodable body",
			key:  resource.MustNew("orders", "9"),
			handler: func(int, string) ([]byte, error) {
				return []byte(`<html>oops</html>`), nil
			},
			wantKind:  ParseFailure,
			wantInMsg: "orders/9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(&fakeFetcher{handler: tt.handler})
			st := c.Fetch(context.Background(), tt.key)

			require.Equal(t, Failed, st.Status)
			assert.Nil(t, st.Data)
			assert.True(t, IsKind(st.Err, tt.wantKind), "got %v", st.Err)
			assert.Contains(t, st.Err.Error(), tt.wantInMsg)

			var qe *Error
			require.True(t, errors.As(st.Err, &qe))
			assert.Equal(t, tt.wantStatus, qe.Status)
		})
	}
}

func TestFetch_InvalidKey(t *testing.T) {
	f := &fakeFetcher{handler: routes(nil)}
	c := NewClient(f)

	st := c.Fetch(context.Background(), resource.Key{})

	require.Equal(t, Failed, st.Status)
	assert.True(t, IsKind(st.Err, InvalidKey))
	assert.ErrorIs(t, st.Err, resource.ErrInvalidKey)
	assert.Empty(t, f.Calls())
}

func TestFetch_FailedStatusNeverSuccess(t *testing.T) {
	for _, code := range []int{400, 401, 403, 404, 409, 500, 502, 503} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			c := NewClient(&fakeFetcher{handler: func(int, string) ([]byte, error) {
				return nil, &fetch.StatusError{Status: code, Body: []byte(`{"ok":true}`)}
			}})
			st := c.Fetch(context.Background(), resource.MustNew("x"))
			assert.Equal(t, Failed, st.Status)
			assert.True(t, IsKind(st.Err, HTTPError))
		})
	}
}

func TestFetch_DeduplicatesConcurrentCallers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{handler: func(n int, _ string) ([]byte, error) {
		if n == 1 {
			close(started)
		}
		<-release
		return []byte(fmt.Sprintf(`{"call":%d}`, n)), nil
	}}
	c := NewClient(f)
	key := resource.MustNew("widgets", "42")

	const callers = 10
	results := make(chan State, callers)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		results <- c.Fetch(context.Background(), key)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.Fetch(context.Background(), key)
		}()
	}

	// Give the followers a moment to join before the leader finishes.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for st := range results {
		require.Equal(t, Success, st.Status)
		assert.Equal(t, map[string]any{"call": float64(1)}, st.Data)
	}
	assert.Len(t, f.Calls(), 1)
}

func TestFetch_FreshWithinStaleTime(t *testing.T) {
	clk := newClock()
	f := &fakeFetcher{handler: func(n int, _ string) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"n":%d}`, n)), nil
	}}
	c := NewClient(f, WithStaleTime(time.Minute), WithClock(clk.Now))
	key := resource.MustNew("profile")

	first := c.Fetch(context.Background(), key)
	second := c.Fetch(context.Background(), key)
	assert.Equal(t, first, second)
	assert.Len(t, f.Calls(), 1)

	clk.Advance(2 * time.Minute)
	third := c.Fetch(context.Background(), key)
	assert.Equal(t, map[string]any{"n": float64(2)}, third.Data)
	assert.Len(t, f.Calls(), 2)
}

func TestFetch_ErrorsAreNotFresh(t *testing.T) {
	f := &fakeFetcher{handler: routes(nil)}
	c := NewClient(f, WithStaleTime(time.Hour))
	key := resource.MustNew("orders", "7")

	c.Fetch(context.Background(), key)
	c.Fetch(context.Background(), key)
	assert.Len(t, f.Calls(), 2)
}

func TestFetch_CacheIsolation(t *testing.T) {
	f := &fakeFetcher{handler: routes(map[string]string{
		"/api/widgets/1": `{"id":1}`,
		"/api/widgets/2": `{"id":2}`,
	})}
	c := NewClient(f, WithStaleTime(time.Hour))

	one := c.Fetch(context.Background(), resource.MustNew("widgets", "1"))
	two := c.Fetch(context.Background(), resource.MustNew("widgets", "2"))

	assert.Equal(t, map[string]any{"id": float64(1)}, one.Data)
	assert.Equal(t, map[string]any{"id": float64(2)}, two.Data)
	assert.Len(t, f.Calls(), 2)

	// Same joined path, different segments: still a separate entry.
	c.Fetch(context.Background(), resource.MustNew("widgets/1"))
	assert.Len(t, f.Calls(), 3)
	assert.Equal(t, 3, c.Cache().Len())
}

func TestFetch_DiscardsSupersededResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{handler: func(n int, _ string) ([]byte, error) {
		if n == 1 {
			close(started)
			<-release
		}
		return []byte(fmt.Sprintf(`{"v":%d}`, n)), nil
	}}
	c := NewClient(f)
	key := resource.MustNew("orders")

	done := make(chan State)
	go func() { done <- c.Fetch(context.Background(), key) }()
	<-started

	newer := c.Refetch(context.Background(), key)
	require.Equal(t, map[string]any{"v": float64(2)}, newer.Data)

	close(release)
	older := <-done
	assert.Equal(t, map[string]any{"v": float64(1)}, older.Data)

	cached, ok := c.Cache().Peek(key)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"v": float64(2)}, cached.Data, "older result must not overwrite newer")
}

func TestFetch_CallerCancellationDoesNotCancelRetrieval(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{handler: func(int, string) ([]byte, error) {
		<-release
		return []byte(`{"ok":true}`), nil
	}}
	c := NewClient(f)
	key := resource.MustNew("slow")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := c.Fetch(ctx, key)
	assert.Equal(t, Pending, st.Status)

	close(release)
	require.Eventually(t, func() bool {
		st, ok := c.Cache().Peek(key)
		return ok && st.IsSuccess()
	}, time.Second, 5*time.Millisecond)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	f := &fakeFetcher{handler: func(_ int, path string) ([]byte, error) {
		return []byte(fmt.Sprintf(`{"path":%q}`, path)), nil
	}}
	c := NewClient(f, WithCache(NewCache(WithMaxEntries(2))))

	for _, id := range []string{"a", "b", "c"} {
		c.Fetch(context.Background(), resource.MustNew(id))
	}

	assert.Equal(t, 2, c.Cache().Len())
	_, ok := c.Cache().Peek(resource.MustNew("a"))
	assert.False(t, ok)
	keys := c.Cache().Keys()
	require.Len(t, keys, 2)
	assert.Equal(t, "c", keys[0].Joined())
	assert.Equal(t, "b", keys[1].Joined())
}

func TestCache_CollectsIdleEntries(t *testing.T) {
	clk := newClock()
	f := &fakeFetcher{handler: func(int, string) ([]byte, error) { return []byte(`{}`), nil }}
	c := NewClient(f, WithClock(clk.Now), WithCache(NewCache(WithGCTime(time.Minute), WithCacheClock(clk.Now))))

	c.Fetch(context.Background(), resource.MustNew("old"))
	clk.Advance(2 * time.Minute)
	c.Fetch(context.Background(), resource.MustNew("new"))

	_, ok := c.Cache().Peek(resource.MustNew("old"))
	assert.False(t, ok)
	_, ok = c.Cache().Peek(resource.MustNew("new"))
	assert.True(t, ok)
}

func TestInvalidatePrefix(t *testing.T) {
	f := &fakeFetcher{handler: func(int, string) ([]byte, error) { return []byte(`{}`), nil }}
	c := NewClient(f, WithStaleTime(time.Hour))

	for _, k := range []resource.Key{
		resource.MustNew("orders", "1"),
		resource.MustNew("orders", "2"),
		resource.MustNew("widgets", "1"),
	} {
		c.Fetch(context.Background(), k)
	}
	require.Len(t, f.Calls(), 3)

	c.InvalidatePrefix(resource.MustNew("orders"))

	c.Fetch(context.Background(), resource.MustNew("orders", "1"))
	c.Fetch(context.Background(), resource.MustNew("widgets", "1"))
	assert.Equal(t, "/api/orders/1", f.Calls()[3])
	assert.Len(t, f.Calls(), 4)
}

func TestFetch_ClearDuringRetrieval(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := &fakeFetcher{handler: func(n int, _ string) ([]byte, error) {
		if n == 1 {
			close(started)
			<-release
		}
		return []byte(fmt.Sprintf(`{"v":%d}`, n)), nil
	}}
	c := NewClient(f)
	key := resource.MustNew("orders")

	done := make(chan State)
	go func() { done <- c.Fetch(context.Background(), key) }()
	<-started

	c.Clear()

	// The recreated entry must not join the retrieval started before Clear.
	after := c.Fetch(context.Background(), key)
	require.Equal(t, map[string]any{"v": float64(2)}, after.Data)
	assert.Len(t, f.Calls(), 2)

	close(release)
	<-done

	cached, ok := c.Cache().Peek(key)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"v": float64(2)}, cached.Data)
}

func TestCache_GenerationsNeverRepeat(t *testing.T) {
	c := NewCache()
	key := resource.MustNew("orders")

	first, started := c.begin(key, false)
	require.True(t, started)

	c.clear()
	second, _ := c.begin(key, false)
	assert.NotEqual(t, first, second)

	c.invalidate(func(resource.Key) bool { return true })
	third, _ := c.begin(key, false)
	assert.NotEqual(t, second, third)
	assert.NotEqual(t, first, third)
}

func TestFetch_JoinAfterFlightSettled(t *testing.T) {
	f := &fakeFetcher{handler: routes(map[string]string{"/api/profile": `{"id":1}`})}
	c := NewClient(f)
	key := resource.MustNew("profile")

	// One caller starts the flight; a second registers while it is in the
	// air, then the flight settles before the second caller reaches it.
	gen, started := c.cache.begin(key, false)
	require.True(t, started)
	joined, started := c.cache.begin(key, false)
	require.False(t, started)
	require.Equal(t, gen, joined)

	_, ok := c.cache.settled(key, gen)
	require.False(t, ok, "in flight")

	want := State{Status: Success, Data: map[string]any{"id": float64(1)}, Raw: []byte(`{"id":1}`)}
	require.True(t, c.cache.settle(key, gen, want))

	st := c.join(context.Background(), key, joined, false)
	assert.Equal(t, want, st)
	assert.Empty(t, f.Calls())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "error", Failed.String())
	assert.True(t, State{Status: Failed}.IsError())
}
