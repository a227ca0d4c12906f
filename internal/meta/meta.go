// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package meta carries the per-invocation values shared by all commands.
package meta

import (
	"context"
	"io"

	"github.com/staranto/apiqgo/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	// Out and Err receive command output and diagnostics.
	Out io.Writer
	Err io.Writer
	// Width is the terminal width in columns, 0 when not a terminal.
	Width int
}
