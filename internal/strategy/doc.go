// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package strategy decides which cache tier, if any, a request URL belongs to
// and for how long its response may be kept. Resolution walks an ordered
// policy table and takes the first entry whose substring occurs in the URL.
package strategy
