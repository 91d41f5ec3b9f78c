// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package ttlstore provides a generic, size-bounded, in-memory key/value store
// where every entry carries its own time-to-live. Expired entries are dropped
// lazily on read and actively by a periodic sweep.
package ttlstore
