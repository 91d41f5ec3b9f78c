// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachedclient

import (
	"strings"

	"github.com/apex/log"

	"github.com/staranto/saasctl/internal/cachekey"
	"github.com/staranto/saasctl/internal/tier"
)

// InvalidationRule drops one aggregate key from one tier when a successful
// mutation's URL contains URLSubstring.
type InvalidationRule struct {
	URLSubstring string
	Tier         tier.Name
	Key          string
}

// DefaultInvalidationRules returns the rules for the super-admin API. Every
// matching rule fires, not just the first.
func DefaultInvalidationRules() []InvalidationRule {
	return []InvalidationRule{
		{"/companies", tier.Medium, cachekey.Get("/api/super-admin/companies")},
		{"/users", tier.Medium, cachekey.Get("/api/super-admin/users")},
		{"/employees", tier.Medium, cachekey.Get("/api/super-admin/employees")},
		{"/subscription-plans", tier.Long, cachekey.Get("/api/super-admin/subscription-plans")},
		{"/settings", tier.Long, cachekey.Get("/api/super-admin/settings")},
		{"/analytics", tier.Medium, cachekey.Get("/api/super-admin/analytics")},
		{"/dashboard", tier.Short, cachekey.Get("/api/super-admin/dashboard/stats")},
	}
}

// invalidate applies every rule whose substring occurs in url. It returns the
// number of keys actually removed.
func (f *Facade) invalidate(url string) int {
	removed := 0
	for _, r := range f.rules {
		if !strings.Contains(url, r.URLSubstring) {
			continue
		}
		store := f.registry.Get(r.Tier)
		if store == nil {
			continue
		}
		if store.Delete(r.Key) {
			removed++
			f.logger.WithFields(log.Fields{"key": r.Key, "tier": r.Tier, "url": url}).Debug("invalidated")
		}
	}
	return removed
}
