// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ttlstore

import "time"

// Entry is a single cached value. Entries are never mutated after creation; a
// Set on an existing key replaces the whole entry.
type Entry[T any] struct {
	Key       string
	Data      T
	CreatedAt time.Time
	TTL       time.Duration

	// seq breaks CreatedAt ties so eviction stays in insertion order even when
	// the clock has not advanced between writes.
	seq uint64
}

// Age returns how long ago the entry was created, relative to now.
func (e *Entry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// Valid reports whether the entry is still within its TTL. An entry whose age
// equals its TTL is still valid.
func (e *Entry[T]) Valid(now time.Time) bool {
	return e.Age(now) <= e.TTL
}

// older reports whether e was created before o.
func (e *Entry[T]) older(o *Entry[T]) bool {
	if e.CreatedAt.Equal(o.CreatedAt) {
		return e.seq < o.seq
	}
	return e.CreatedAt.Before(o.CreatedAt)
}
