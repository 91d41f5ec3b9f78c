// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cacheutil holds process-level cache switches read from the
// environment.
package cacheutil

import (
	"os"
	"strings"
)

// EnvVar turns the response cache off when set to "0", "false" or "off".
const EnvVar = "SAASCTL_CACHE"

// Enabled returns true unless SAASCTL_CACHE explicitly disables it.
func Enabled() bool {
	v, _ := os.LookupEnv(EnvVar)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "off":
		return false
	}
	return true
}
