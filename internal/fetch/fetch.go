// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Fetcher retrieves the raw body stored at path. Implementations return
// *StatusError for a failing status and *NetworkError when nothing came back.
type Fetcher interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, path string) ([]byte, error)

// Get implements Fetcher.
func (f FetcherFunc) Get(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// defaultTimeout bounds each HTTP attempt unless WithTimeout says otherwise.
const defaultTimeout = 30 * time.Second

// DefaultMaxBodySize caps a response body unless WithMaxBodySize says
// otherwise.
const DefaultMaxBodySize = 10 << 20

type options struct {
	token      string
	headers    map[string]string
	retries    int
	waitMin    time.Duration
	waitMax    time.Duration
	timeout    time.Duration
	maxBody    int64
	s3Region   string
	s3Profile  string
	s3Endpoint string
}

func newOptions(opts []Option) options {
	o := options{timeout: defaultTimeout, maxBody: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures New.
type Option func(*options)

// WithToken sends "Authorization: Bearer <token>" on HTTP requests.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithHeader adds a request header to HTTP requests.
func WithHeader(name, value string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = map[string]string{}
		}
		o.headers[name] = value
	}
}

// WithRetries sets how many times the retrieval layer retries a failed
// request. The default is zero.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(o *options) {
		o.waitMin = minWait
		o.waitMax = maxWait
	}
}

// WithTimeout bounds each HTTP attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxBodySize caps how many bytes of a response body are read. Zero or
// less keeps the default.
func WithMaxBodySize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBody = n
		}
	}
}

// WithS3 sets the region, shared config profile and optional endpoint used
// for s3:// roots.
func WithS3(region, profile, endpoint string) Option {
	return func(o *options) {
		o.s3Region = region
		o.s3Profile = profile
		o.s3Endpoint = endpoint
	}
}

// New returns the Fetcher for root. An empty root or an http(s) URL yields an
// HTTP fetcher; s3://bucket/prefix yields an S3 fetcher.
func New(ctx context.Context, root string, opts ...Option) (Fetcher, error) {
	if root == "" {
		return NewHTTP("", opts...), nil
	}

	u, err := url.Parse(root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse root %q: %w", root, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTP(root, opts...), nil
	case "s3":
		return NewS3(ctx, u.Host, strings.Trim(u.Path, "/"), opts...)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedRoot, root)
}
