// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cachedclient wraps an API client with the tiered response cache.
//
// Reads go through the strategy resolver: a URL that matches a policy is
// served from its tier while fresh, and fetched and stored otherwise. URLs
// without a policy always reach the network. Mutations always reach the
// network and, on success, drop a fixed set of aggregate list keys so the
// next list read refetches. Detail-by-id keys are left alone and age out on
// their TTL.
package cachedclient
