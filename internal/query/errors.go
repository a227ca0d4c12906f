// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"
	"fmt"

	"github.com/staranto/apiqgo/internal/fetch"
	"github.com/staranto/apiqgo/internal/resource"
)

// Kind classifies why a query failed.
type Kind int

const (
	// NetworkFailure: no response was received.
	NetworkFailure Kind = iota
	// HTTPError: a response arrived with a failing status.
	HTTPError
	// ParseFailure: the body was not decodable JSON.
	ParseFailure
	// InvalidKey: the key had no non-empty segment.
	InvalidKey
)

func (k Kind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case HTTPError:
		return "http error"
	case ParseFailure:
		return "parse failure"
	case InvalidKey:
		return "invalid key"
	}
	return "unknown"
}

// Error is the reason carried by a Failed state. Its message always names the
// joined key.
type Error struct {
	Key    string
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == HTTPError {
		return fmt.Sprintf("failed to fetch data for %s: status %d", e.Key, e.Status)
	}
	return fmt.Sprintf("failed to fetch data for %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a query *Error of kind k.
func IsKind(err error, k Kind) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Kind == k
}

// classify wraps a retrieval error into an *Error.
func classify(key resource.Key, err error) *Error {
	qe := &Error{Key: key.Joined(), Kind: NetworkFailure, Err: err}

	var se *fetch.StatusError
	switch {
	case errors.As(err, &se):
		qe.Kind = HTTPError
		qe.Status = se.Status
	case errors.Is(err, resource.ErrInvalidKey):
		qe.Kind = InvalidKey
	}

	return qe
}
