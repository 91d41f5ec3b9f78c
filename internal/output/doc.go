// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package output turns API responses into rows and renders them as a text
// table, json, yaml or the raw response. Rows can be filtered and sorted by
// column before rendering.
package output
