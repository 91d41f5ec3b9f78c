// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package strategy

import (
	"time"

	"github.com/staranto/saasctl/internal/tier"
)

// Policy maps a URL substring to a tier. A zero Tier disables caching for
// matching URLs. A zero TTLOverride means the tier's default TTL.
type Policy struct {
	URLSubstring string        `yaml:"url" json:"url"`
	Tier         tier.Name     `yaml:"tier" json:"tier"`
	TTLOverride  time.Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`
}

// DefaultTable returns the process-wide policy table. Order matters: the
// first matching entry wins, so the /companies entry shadows the
// /companies/archived entry below it and archived lists are cached in MEDIUM
// for the tier default, not in SHORT.
func DefaultTable() []Policy {
	return []Policy{
		// Never cache auth traffic.
		{URLSubstring: "/auth/", Tier: tier.None},

		{URLSubstring: "/dashboard", Tier: tier.Short},
		{URLSubstring: "/notifications", Tier: tier.None},

		{URLSubstring: "/companies", Tier: tier.Medium},
		{URLSubstring: "/companies/archived", Tier: tier.Short, TTLOverride: 10 * time.Second},
		{URLSubstring: "/users", Tier: tier.Medium},
		{URLSubstring: "/employees", Tier: tier.Medium, TTLOverride: 2 * time.Minute},
		{URLSubstring: "/analytics", Tier: tier.Medium, TTLOverride: 10 * time.Minute},

		{URLSubstring: "/subscription-plans", Tier: tier.Long, TTLOverride: 15 * time.Minute},
		{URLSubstring: "/plans", Tier: tier.Long, TTLOverride: 15 * time.Minute},
		{URLSubstring: "/settings", Tier: tier.Long},

		{URLSubstring: "/countries", Tier: tier.Static},
		{URLSubstring: "/currencies", Tier: tier.Static},
		{URLSubstring: "/timezones", Tier: tier.Static},
	}
}
