// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrBodyTooLarge means a response body exceeded the configured cap.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPFetcher issues GET requests against a base address.
type HTTPFetcher struct {
	base    string
	token   string
	headers map[string]string
	maxBody int64
	client  *retryablehttp.Client
}

// NewHTTP builds an HTTPFetcher. base may be empty, in which case paths must
// be absolute URLs.
func NewHTTP(base string, opts ...Option) *HTTPFetcher {
	o := newOptions(opts)

	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = o.timeout

	rc := retryablehttp.NewClient()
	rc.HTTPClient = hc
	rc.RetryMax = o.retries
	if o.waitMin > 0 {
		rc.RetryWaitMin = o.waitMin
	}
	if o.waitMax > 0 {
		rc.RetryWaitMax = o.waitMax
	}
	rc.Logger = leveledLogger{}
	// Hand the last response back as-is so a failing status stays a status
	// error instead of becoming "giving up after N attempts".
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPFetcher{
		base:    strings.TrimSuffix(base, "/"),
		token:   o.token,
		headers: o.headers,
		maxBody: o.maxBody,
		client:  rc,
	}
}

// Get implements Fetcher.
func (f *HTTPFetcher) Get(ctx context.Context, path string) ([]byte, error) {
	target := f.base + path

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	var doc bytes.Buffer
	if _, err := doc.ReadFrom(io.LimitReader(resp.Body, f.maxBody+1)); err != nil {
		return nil, &NetworkError{Target: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if int64(doc.Len()) > f.maxBody {
		return nil, &NetworkError{Target: target, Err: fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, f.maxBody)}
	}

	log.Debugf("GET %s: %d (%d bytes)", target, resp.StatusCode, doc.Len())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Target: target, Status: resp.StatusCode, Body: clip(doc.Bytes())}
	}

	return doc.Bytes(), nil
}

// Client exposes the underlying retrying client so collaborators (sign-out)
// share its transport.
func (f *HTTPFetcher) Client() *retryablehttp.Client {
	return f.client
}

// Base is the address paths are resolved against.
func (f *HTTPFetcher) Base() string {
	return f.base
}

// leveledLogger routes retryablehttp's logging through apex/log.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	log.WithFields(fields(kv)).Error(msg)
}

func (leveledLogger) Info(msg string, kv ...interface{}) {
	log.WithFields(fields(kv)).Debug(msg)
}

func (leveledLogger) Debug(msg string, kv ...interface{}) {
	log.WithFields(fields(kv)).Debug(msg)
}

func (leveledLogger) Warn(msg string, kv ...interface{}) {
	log.WithFields(fields(kv)).Warn(msg)
}

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
