// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultPrefix is the resource-root prefix prepended to every request path.
const DefaultPrefix = "/api"

// idSeparator cannot appear in a URL path segment.
const idSeparator = "\x1f"

// ErrInvalidKey is returned when a key has no non-empty segment.
var ErrInvalidKey = errors.New("invalid resource key")

// Key is an ordered sequence of path segments. The zero value is not a valid
// key; use New or Parse.
type Key struct {
	segments []string
}

// New builds a Key from segments, in order. A single argument is a single
// segment and is never split on "/". At least one segment must be non-empty.
func New(segments ...string) (Key, error) {
	nonEmpty := false
	for _, s := range segments {
		if s != "" {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidKey, segments)
	}

	k := Key{segments: make([]string, len(segments))}
	copy(k.segments, segments)
	return k, nil
}

// MustNew is New for keys known at compile time. It panics on an invalid key.
func MustNew(segments ...string) Key {
	k, err := New(segments...)
	if err != nil {
		panic(err)
	}
	return k
}

// Parse splits a "/" delimited string into a Key. Empty segments (leading,
// trailing or doubled slashes) are dropped.
func Parse(s string) (Key, error) {
	var segments []string
	for _, part := range strings.Split(s, "/") {
		if part = strings.TrimSpace(part); part != "" {
			segments = append(segments, part)
		}
	}
	return New(segments...)
}

// Segments returns a copy of the key's segments.
func (k Key) Segments() []string {
	out := make([]string, len(k.segments))
	copy(out, k.segments)
	return out
}

// Len is the number of segments.
func (k Key) Len() int {
	return len(k.segments)
}

// IsZero reports whether k was never built.
func (k Key) IsZero() bool {
	return len(k.segments) == 0
}

// ID is the cache identity of the key. Unlike Joined it keeps segment
// boundaries, so ["orders/7"] and ["orders","7"] are distinct entries.
func (k Key) ID() string {
	return strings.Join(k.segments, idSeparator)
}

// Joined returns the segments joined with "/".
func (k Key) Joined() string {
	return strings.Join(k.segments, "/")
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return k.Joined()
}

// Path is the request path relative to the resource root, e.g. /widgets/42.
func (k Key) Path() string {
	return "/" + k.Joined()
}

// URL composes the full request target from a base address (may be empty for
// a relative target), the resource-root prefix and the key's path.
func (k Key) URL(base, prefix string) string {
	base = strings.TrimSuffix(base, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix = "/" + prefix
	}
	return base + prefix + k.Path()
}

// Equal reports whether both keys have the same segment sequence.
func (k Key) Equal(other Key) bool {
	if len(k.segments) != len(other.segments) {
		return false
	}
	for i := range k.segments {
		if k.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether the leading segments of k equal all of p's
// segments.
func (k Key) HasPrefix(p Key) bool {
	if len(p.segments) > len(k.segments) {
		return false
	}
	for i := range p.segments {
		if k.segments[i] != p.segments[i] {
			return false
		}
	}
	return true
}
