// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package tier owns the four cache tiers, each a ttlstore.Store configured
// for one volatility class of API data, from fast-changing dashboard numbers
// to near-static reference data.
package tier
