// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package meta carries the state shared by every command: the raw args, the
// loaded config and the process context.
package meta

import (
	"context"

	"github.com/staranto/saasctl/internal/config"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args    []string
	Config  config.Type
	Context context.Context
	// CacheDisabled is set from SAASCTL_CACHE.
	CacheDisabled bool
}
