// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package apiclient is the HTTP client for the super-admin API. It knows
// nothing about caching; retries, backoff and timeouts live here.
package apiclient
