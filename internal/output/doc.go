// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package output renders fetched resource bodies as text tables, JSON, YAML
// or raw bytes, with optional selection, column, filter and sort specs.
package output
