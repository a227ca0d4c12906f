// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/apiqgo/internal/config"
	"github.com/staranto/apiqgo/internal/session"
)

// api is a stub resource root that counts requests per path.
type api struct {
	mu     sync.Mutex
	bodies map[string]string
	hits   map[string]int
}

func newAPI(t *testing.T, bodies map[string]string) (*api, *httptest.Server) {
	t.Helper()
	a := &api{bodies: bodies, hits: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.hits[r.Method+" "+r.URL.Path]++
		body, ok := a.bodies[r.URL.Path]
		a.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return a, srv
}

func (a *api) set(path, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bodies[path] = body
}

func (a *api) count(key string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[key]
}

// isolate points config and the disk cache at temp locations and clears any
// APIQ_* settings from the environment.
func isolate(t *testing.T, cfg string) {
	t.Helper()

	for _, env := range []string{"APIQ_ROOT", "APIQ_PREFIX", "APIQ_TOKEN", "APIQ_RETRIES", "APIQ_STALE", "APIQ_OUTPUT", "APIQ_CACHE", "APIQ_FILTER_DELIM"} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}

	path := filepath.Join(t.TempDir(), "apiq.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	t.Setenv(config.EnvFile, path)
	t.Setenv("APIQ_CACHE_DIR", t.TempDir())

	config.Config = config.Type{}
	t.Cleanup(func() { config.Config = config.Type{} })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	argv := append([]string{"apiq"}, args...)
	var out, errb bytes.Buffer
	app, err := InitApp(context.Background(), argv, WithWriters(&out, &errb))
	require.NoError(t, err)

	err = app.Run(context.Background(), argv)
	return out.String(), err
}

func TestGetCommand(t *testing.T) {
	isolate(t, "")
	a, srv := newAPI(t, map[string]string{
		"/api/widgets/42": `{"id":42,"name":"bolt","tags":["a","b"]}`,
		"/api/orders":     `[{"id":1,"status":"open"},{"id":2,"status":"closed"},{"id":3,"status":"open"}]`,
	})

	t.Run("json", func(t *testing.T) {
		out, err := run(t, "get", "--root", srv.URL, "-o", "json", "widgets", "42")
		require.NoError(t, err)
		assert.Contains(t, out, `"name": "bolt"`)
	})

	t.Run("select scalar", func(t *testing.T) {
		out, err := run(t, "get", "--root", srv.URL, "--select", "name", "widgets/42")
		require.NoError(t, err)
		assert.Equal(t, "bolt\n", out)
	})

	t.Run("filtered table", func(t *testing.T) {
		out, err := run(t, "get", "--root", srv.URL, "--filter", "status=open", "--columns", "id", "orders")
		require.NoError(t, err)
		out = ansi.Strip(out)
		assert.Contains(t, out, "1")
		assert.Contains(t, out, "3")
		assert.NotContains(t, out, "2")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := run(t, "get", "--root", srv.URL, "orders", "7")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch data for orders/7")
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := run(t, "get", "widgets")
		assert.ErrorIs(t, err, ErrNoRoot)
	})

	// Everything above ran against one disk cache, so widgets/42 was only
	// requested once.
	assert.Equal(t, 1, a.count("GET /api/widgets/42"))

	t.Run("refresh", func(t *testing.T) {
		_, err := run(t, "get", "--root", srv.URL, "--refresh", "widgets/42")
		require.NoError(t, err)
		assert.Equal(t, 2, a.count("GET /api/widgets/42"))
	})
}

func TestGetCommand_NoCache(t *testing.T) {
	isolate(t, "")
	t.Setenv("APIQ_CACHE", "0")
	a, srv := newAPI(t, map[string]string{"/api/profile": `{"id":1}`})

	for range 2 {
		_, err := run(t, "get", "--root", srv.URL, "profile")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, a.count("GET /api/profile"))
}

func TestGetCommand_ConfigRoot(t *testing.T) {
	a, srv := newAPI(t, map[string]string{"/v2/profile": `{"id":1}`})
	isolate(t, "root: "+srv.URL+"\nget:\n  prefix: /v2\n")

	out, err := run(t, "get", "-o", "raw", "profile")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, out)
	assert.Equal(t, 1, a.count("GET /v2/profile"))
}

func TestDiffCommand(t *testing.T) {
	isolate(t, "")
	a, srv := newAPI(t, map[string]string{
		"/api/a": `{"x":1,"y":"same"}`,
		"/api/b": `{"x":2,"y":"same"}`,
	})

	out, err := run(t, "diff", "--root", srv.URL, "a", "b")
	require.NoError(t, err)
	assert.Contains(t, out, `"x": 1`)
	assert.Contains(t, out, `"x": 2`)

	out, err = run(t, "diff", "--root", srv.URL, "a", "a")
	require.NoError(t, err)
	assert.Equal(t, "no differences\n", out)

	_, err = run(t, "diff", "--root", srv.URL, "c")
	assert.ErrorIs(t, err, ErrNoCachedCopy)

	// a is cached now; change it upstream and compare.
	a.set("/api/a", `{"x":3,"y":"same"}`)
	out, err = run(t, "diff", "--root", srv.URL, "a")
	require.NoError(t, err)
	assert.Contains(t, out, `"x": 3`)

	_, err = run(t, "diff", "--root", srv.URL)
	assert.Error(t, err)
}

func TestDiffJSON(t *testing.T) {
	tests := []struct {
		name        string
		left, right string
		changed     bool
		wantErr     bool
	}{
		{"equal objects", `{"a":1}`, `{"a":1}`, false, false},
		{"object change", `{"a":1}`, `{"a":2}`, true, false},
		{"array change", `[1,2]`, `[1,3]`, true, false},
		{"scalars", `"x"`, `"y"`, true, false},
		{"object vs array", `{"a":1}`, `[1]`, false, true},
		{"invalid", `{`, `{}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, changed, err := diffJSON([]byte(tt.left), []byte(tt.right), false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestWhoamiAndLogout(t *testing.T) {
	isolate(t, "")
	a, srv := newAPI(t, map[string]string{
		"/api/auth/get-session": `{"user":{"name":"Jane Doe","email":"jane@example.com"}}`,
		"/api/auth/sign-out":    `{}`,
	})

	out, err := run(t, "whoami", "--root", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "(JD) Jane Doe <jane@example.com>\n", out)

	out, err = run(t, "whoami", "--root", srv.URL, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"initials": "JD"`)

	out, err = run(t, "whoami", "--root", srv.URL, "--menu")
	require.NoError(t, err)
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Log out")

	out, err = run(t, "logout", "--root", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "signed out\n", out)
	assert.Equal(t, 1, a.count("POST /api/auth/sign-out"))

	// The session was dropped from the disk cache, so the next read goes to
	// the server and sees the signed-out document.
	a.set("/api/auth/get-session", `{"user":null}`)
	_, err = run(t, "whoami", "--root", srv.URL)
	assert.ErrorIs(t, err, session.ErrNoUser)
	assert.Equal(t, 2, a.count("GET /api/auth/get-session"))
}

func TestWhoami_ConfiguredUser(t *testing.T) {
	isolate(t, "session:\n  user:\n    email: bob@x.com\n")

	out, err := run(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "(B) bob@x.com\n", out)
}

func TestWhoami_NoRoot(t *testing.T) {
	isolate(t, "")

	_, err := run(t, "whoami")
	assert.ErrorIs(t, err, ErrNoRoot)
}

func TestNavCommand(t *testing.T) {
	isolate(t, "brand: acme\nitems:\n  - href: /\n    title: Home\n    icon: home\n  - href: /orders\n    title: Orders\n")

	out, err := run(t, "nav", "--width", "120", "--path", "/orders")
	require.NoError(t, err)
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "Home")
	assert.Contains(t, out, "Orders")

	// Narrow and closed: only the top bar.
	out, err = run(t, "nav", "--width", "40")
	require.NoError(t, err)
	out = ansi.Strip(out)
	assert.Contains(t, out, "acme")
	assert.NotContains(t, out, "Orders")
}

func TestNavItems_Default(t *testing.T) {
	isolate(t, "items:\n  - title: no href\n")
	items := navItems()
	require.Len(t, items, 1)
	assert.Equal(t, "/", items[0].Href)
}

func TestCacheCommands(t *testing.T) {
	isolate(t, "")
	_, srv := newAPI(t, map[string]string{
		"/api/widgets/42": `{"id":42}`,
		"/api/widgets/43": `{"id":43}`,
	})

	for _, k := range []string{"widgets/42", "widgets/43"} {
		_, err := run(t, "get", "--root", srv.URL, k)
		require.NoError(t, err)
	}

	out, err := run(t, "cache", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "widgets/42")
	assert.Contains(t, out, "widgets/43")
	assert.Contains(t, out, storeNamespace(srv.URL))

	_, err = run(t, "cache", "rm", "--root", srv.URL, "widgets/42")
	require.NoError(t, err)

	out, err = run(t, "cache", "ls", "--root", srv.URL)
	require.NoError(t, err)
	assert.NotContains(t, out, "widgets/42")
	assert.Contains(t, out, "widgets/43")

	out, err = run(t, "cache", "purge")
	require.NoError(t, err)
	assert.Equal(t, "removed 0 entries\n", out)

	out, err = run(t, "cache", "purge", "--all")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 entry\n", out)
}

func TestCompletionCommand(t *testing.T) {
	isolate(t, "")

	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# bash completion for apiq"))
	assert.Contains(t, out, "complete -F _apiq apiq")

	out, err = run(t, "completion", "zsh")
	require.NoError(t, err)
	assert.Contains(t, out, "#compdef apiq")
}

func TestStoreNamespace(t *testing.T) {
	tests := []struct {
		root string
		want string
	}{
		{"https://api.example.com", "https_api.example.com"},
		{"http://127.0.0.1:8080/base", "http_127.0.0.1_8080"},
		{"s3://bucket/prefix", "s3_bucket"},
		{"not a url", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.root, func(t *testing.T) {
			assert.Equal(t, tt.want, storeNamespace(tt.root))
		})
	}
}

func TestKeyFromArgs(t *testing.T) {
	k, err := keyFromArgs([]string{"orders/7"})
	require.NoError(t, err)
	assert.Equal(t, "orders/7", k.Joined())

	k, err = keyFromArgs([]string{"widgets", "42"})
	require.NoError(t, err)
	assert.Equal(t, "/widgets/42", k.Path())

	_, err = keyFromArgs(nil)
	assert.Error(t, err)
}

func TestGetCommand_Stats(t *testing.T) {
	isolate(t, "")
	_, srv := newAPI(t, map[string]string{"/api/profile": `{"id":1}`})

	argv := []string{"apiq", "get", "--root", srv.URL, "--stats", "profile"}
	var out, errb bytes.Buffer
	app, err := InitApp(context.Background(), argv, WithWriters(&out, &errb))
	require.NoError(t, err)
	require.NoError(t, app.Run(context.Background(), argv))

	assert.Contains(t, errb.String(), "apiq_cache_misses_total 1")
	assert.Contains(t, errb.String(), "apiq_fetch_duration_seconds count=1")
}
