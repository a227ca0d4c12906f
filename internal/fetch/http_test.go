// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/profile":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":1}`))
		case "/api/secret":
			if r.Header.Get("Authorization") != "Bearer s3cr3t" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer srv.Close()

	f := NewHTTP(srv.URL, WithToken("s3cr3t"))

	body, err := f.Get(context.Background(), "/api/profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1}`, string(body))

	body, err = f.Get(context.Background(), "/api/secret")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = f.Get(context.Background(), "/api/orders/7")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Contains(t, string(se.Body), "not found")
	assert.Contains(t, se.Error(), "/api/orders/7")
}

func TestHTTPFetcher_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewHTTP(base).Get(context.Background(), "/api/profile")
	var ne *NetworkError
	require.True(t, errors.As(err, &ne), "got %T: %v", err, err)
	assert.Equal(t, base+"/api/profile", ne.Target)
}

func TestHTTPFetcher_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL).Get(context.Background(), "/api/flaky")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)
	assert.Equal(t, int32(1), hits.Load())
}

func TestHTTPFetcher_Retries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	f := NewHTTP(srv.URL, WithRetries(2), WithRetryWait(time.Millisecond, 5*time.Millisecond))
	body, err := f.Get(context.Background(), "/api/flaky")
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(body))
	assert.Equal(t, int32(3), hits.Load())
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	f, err := New(ctx, "")
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, f)

	f, err = New(ctx, "https://example.com/")
	require.NoError(t, err)
	require.IsType(t, &HTTPFetcher{}, f)
	assert.Equal(t, "https://example.com", f.(*HTTPFetcher).Base())

	_, err = New(ctx, "ftp://example.com")
	assert.ErrorIs(t, err, ErrUnsupportedRoot)
}

func TestHTTPFetcher_MaxBodySize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"0123456789"}`))
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, WithMaxBodySize(8)).Get(context.Background(), "/big")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	var ne *NetworkError
	assert.True(t, errors.As(err, &ne))

	body, err := NewHTTP(srv.URL, WithMaxBodySize(64)).Get(context.Background(), "/big")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"0123456789"}`, string(body))
}
