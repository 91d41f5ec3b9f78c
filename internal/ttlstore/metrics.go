// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ttlstore

// Metrics receives store lifecycle events. Implementations must be safe for
// concurrent use since the sweep goroutine reports expirations.
type Metrics interface {
	// Hit is called when Get returns a valid entry.
	Hit()
	// Miss is called when Get finds nothing, or finds an expired entry.
	Miss()
	// Eviction is called when an entry is dropped to make room for a new one.
	Eviction()
	// Expire is called for each entry removed because its TTL elapsed, whether
	// on read or by the sweep.
	Expire()
}

// NoopMetrics discards all events. It is the default so the store never has
// to nil-check its metrics.
type NoopMetrics struct{}

func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Expire()   {}
