// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// apiq is the command line entry point. It wires the CLI and delegates to the
// internal packages.
package main
