// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package query reads named backend resources through a shared cache.
//
// A Client resolves a resource.Key to a State (pending, success or error).
// Concurrent callers for one key share a single retrieval, a fresh success is
// served without touching the network, and results from a superseded
// generation are dropped so they never overwrite a newer state. Writes to the
// Cache happen only inside the Client; everyone else reads.
package query
