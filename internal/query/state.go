// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package query

import "time"

// Status is the lifecycle position of a query.
type Status int

const (
	Pending Status = iota
	Success
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Success:
		return "success"
	case Failed:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of one key's query. Data is the decoded body (maps,
// slices and scalars as produced by encoding/json) and Raw the body itself.
type State struct {
	Status    Status
	Data      any
	Raw       []byte
	Err       error
	UpdatedAt time.Time
}

func (s State) IsPending() bool { return s.Status == Pending }
func (s State) IsSuccess() bool { return s.Status == Success }
func (s State) IsError() bool   { return s.Status == Failed }

func pending() State {
	return State{Status: Pending}
}
