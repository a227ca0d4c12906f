// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package session reads the authenticated user. Sessions are issued
// elsewhere; this package only consumes them and can end them.
package session
