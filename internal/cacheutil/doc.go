// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cacheutil persists successful resource bodies on disk so a fresh
// copy survives between invocations.
package cacheutil
