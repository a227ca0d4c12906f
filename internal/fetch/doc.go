// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package fetch performs the single GET retrieval behind a resource key. It
// knows nothing about caching; callers classify its errors.
package fetch
