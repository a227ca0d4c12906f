// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package nav renders the navigation shell and the user menu in the terminal:
// a sidebar on wide terminals, a top bar with a slide-out sheet on narrow
// ones. Shell is the interactive bubbletea model around them.
package nav
