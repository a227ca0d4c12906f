// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"errors"
	"fmt"
)

// ErrUnsupportedRoot is returned by New for a root with an unknown scheme.
var ErrUnsupportedRoot = errors.New("unsupported resource root")

// NetworkError means no response was received.
type NetworkError struct {
	Target string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("GET %s: %v", e.Target, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError means a response was received with a failing status.
type StatusError struct {
	Target string
	Status int
	// Body is a prefix of the response body, for diagnostics.
	Body []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.Target, e.Status)
}

// maxErrorBody bounds StatusError.Body.
const maxErrorBody = 512

func clip(b []byte) []byte {
	if len(b) > maxErrorBody {
		return b[:maxErrorBody]
	}
	return b
}
