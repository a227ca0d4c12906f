// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package resource defines the Key used to address a backend resource. A Key
// is both the request path and the cache identity.
package resource
