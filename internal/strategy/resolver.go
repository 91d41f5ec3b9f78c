// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package strategy

import (
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/saasctl/internal/tier"
)

// Strategy is the outcome of resolving a URL.
type Strategy struct {
	// Tier is tier.None when the URL must not be cached.
	Tier  tier.Name
	Store *tier.Store
	TTL   time.Duration
	// Index is the position of the matching policy, or -1.
	Index int
}

// Cached reports whether responses for the URL go into a tier.
func (s Strategy) Cached() bool {
	return s.Store != nil
}

// Resolver resolves URLs against an ordered policy table.
type Resolver struct {
	table    []Policy
	registry *tier.Registry
}

// NewResolver copies table so later changes by the caller have no effect.
func NewResolver(table []Policy, registry *tier.Registry) *Resolver {
	t := make([]Policy, len(table))
	copy(t, table)
	return &Resolver{table: t, registry: registry}
}

// Table returns a copy of the policy table in resolution order.
func (r *Resolver) Table() []Policy {
	t := make([]Policy, len(r.table))
	copy(t, r.table)
	return t
}

// Match returns the first policy whose substring occurs in url and its index.
func (r *Resolver) Match(url string) (Policy, int, bool) {
	for i, p := range r.table {
		if strings.Contains(url, p.URLSubstring) {
			return p, i, true
		}
	}
	return Policy{}, -1, false
}

// Resolve returns the tier and effective TTL for url. URLs that match no
// policy, or match a policy without a tier, are not cached.
func (r *Resolver) Resolve(url string) Strategy {
	p, idx, ok := r.Match(url)
	if !ok {
		log.Debugf("no cache policy for %s", url)
		return Strategy{Tier: tier.None, Index: -1}
	}

	store := r.registry.Get(p.Tier)
	if store == nil {
		log.Debugf("policy %q disables caching for %s", p.URLSubstring, url)
		return Strategy{Tier: tier.None, Index: idx}
	}

	ttl := p.TTLOverride
	if ttl <= 0 {
		ttl = store.Config().DefaultTTL
	}

	log.WithFields(log.Fields{
		"url":    url,
		"policy": p.URLSubstring,
		"tier":   p.Tier,
		"ttl":    ttl,
	}).Debug("resolved cache strategy")

	return Strategy{Tier: p.Tier, Store: store, TTL: ttl, Index: idx}
}

// Shadow describes a policy that can never match because an earlier policy's
// substring is contained in its own.
type Shadow struct {
	Shadowed Policy
	By       Policy
	Index    int
	ByIndex  int
}

// Shadows lists every unreachable policy in the table. Shadowing is kept as
// is; this only makes it visible.
func (r *Resolver) Shadows() []Shadow {
	var shadows []Shadow
	for i, later := range r.table {
		for j := 0; j < i; j++ {
			earlier := r.table[j]
			if strings.Contains(later.URLSubstring, earlier.URLSubstring) {
				shadows = append(shadows, Shadow{Shadowed: later, By: earlier, Index: i, ByIndex: j})
				break
			}
		}
	}
	return shadows
}
