// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/apex/log"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/staranto/apiqgo/internal/query"
	"github.com/staranto/apiqgo/internal/resource"
)

// ErrNoUser means nobody is signed in.
var ErrNoUser = errors.New("no authenticated user")

// SessionKey is where the session document is read from.
var SessionKey = resource.MustNew("auth", "get-session")

// Provider supplies the current user and ends the session.
type Provider interface {
	User(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
}

// ResourceProvider reads the session document through a query client, so the
// session shares the resource cache with everything else.
type ResourceProvider struct {
	client  *query.Client
	key     resource.Key
	signOut func(context.Context) error
}

// ResourceOption configures NewResourceProvider.
type ResourceOption func(*ResourceProvider)

// WithSessionKey overrides SessionKey.
func WithSessionKey(key resource.Key) ResourceOption {
	return func(p *ResourceProvider) { p.key = key }
}

// WithSignOut sets the call that ends the session server side.
func WithSignOut(fn func(context.Context) error) ResourceOption {
	return func(p *ResourceProvider) { p.signOut = fn }
}

// NewResourceProvider returns a ResourceProvider reading through client.
func NewResourceProvider(client *query.Client, opts ...ResourceOption) *ResourceProvider {
	p := &ResourceProvider{client: client, key: SessionKey}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// User implements Provider. The document's "user" member is the user; a null
// document or member means nobody is signed in.
func (p *ResourceProvider) User(ctx context.Context) (*User, error) {
	st := p.client.Fetch(ctx, p.key)
	switch {
	case st.IsError():
		return nil, st.Err
	case st.IsPending():
		return nil, fmt.Errorf("session not loaded: %w", ctx.Err())
	}

	raw := gjson.GetBytes(st.Raw, "user")
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil, ErrNoUser
	}

	var u User
	if err := json.Unmarshal([]byte(raw.Raw), &u); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}
	return &u, nil
}

// SignOut implements Provider. The cached session is invalidated whether or
// not a server-side call is configured.
func (p *ResourceProvider) SignOut(ctx context.Context) error {
	defer p.client.Invalidate(p.key)

	if p.signOut == nil {
		return nil
	}
	return p.signOut(ctx)
}

// HTTPSignOut returns a sign-out call that POSTs to url once. It shares rc's
// transport but never its retries, since signing out is not idempotent.
func HTTPSignOut(rc *retryablehttp.Client, url, token string) func(context.Context) error {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := rc.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to sign out: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("failed to sign out: status %d", resp.StatusCode)
		}
		log.Debugf("signed out via %s", url)
		return nil
	}
}

// StaticProvider serves a fixed user, typically from configuration.
type StaticProvider struct {
	mu   sync.Mutex
	user *User
}

// NewStaticProvider returns a provider for u. A nil u means signed out.
func NewStaticProvider(u *User) *StaticProvider {
	return &StaticProvider{user: u}
}

// User implements Provider.
func (p *StaticProvider) User(context.Context) (*User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.user == nil {
		return nil, ErrNoUser
	}
	u := *p.user
	return &u, nil
}

// SignOut implements Provider.
func (p *StaticProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.user = nil
	return nil
}
