// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/cacheutil"
	"github.com/staranto/saasctl/internal/config"
	"github.com/staranto/saasctl/internal/meta"
)

// Version is printed by --version. It is set at build time.
var Version = "dev"

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	// The arg[1] immediately following the binary (arg[0]) is the saasctl
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		ns = args[1]
	}

	cfg, _ := config.Load(ns)
	meta := meta.Meta{
		Args:          args,
		Config:        cfg,
		Context:       ctx,
		CacheDisabled: !cacheutil.Enabled(),
	}

	app := &cli.Command{
		Name:    "saasctl",
		Usage:   "super-admin API client with a tiered response cache",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "saasctl version info",
				HideDefault: true,
			},
		},
		HideVersion: true,
	}

	for _, r := range Resources {
		app.Commands = append(app.Commands, QueryCommandBuilder(r, meta))
	}

	app.Commands = append(app.Commands,
		CreateCommandBuilder(meta),
		UpdateCommandBuilder(meta),
		DeleteCommandBuilder(meta),
		UploadCommandBuilder(meta),
		BatchCommandBuilder(meta),
		PoliciesCommandBuilder(meta),
		CompletionCommandBuilder(meta),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app, nil
}
