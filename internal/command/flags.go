// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/apiclient"
	"github.com/staranto/saasctl/internal/config"
)

func init() {
	cfg, _ = config.Load("")
}

var cfg config.Type

// configSources returns the namespaced and global config file sources for
// key, in that order.
func configSources(ns, key string) []cli.ValueSource {
	src := altsrc.StringSourcer(cfg.Source)
	if ns == "" {
		return []cli.ValueSource{yaml.YAML(key, src)}
	}
	return []cli.ValueSource{
		yaml.YAML(ns+"."+key, src),
		yaml.YAML(key, src),
	}
}

// NewGlobalFlags returns the output and cache flags every API command takes.
// ns is the command name, used as the config namespace.
func NewGlobalFlags(ns string) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "attrs",
			Aliases: []string{"a"},
			Usage:   "comma-separated list of attributes to include in results",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(configSources(ns, "color")...),
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(configSources(ns, "output")...),
			Value:   "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.BoolFlag{
			Name:        "preload",
			Usage:       "warm the cache with plans and settings first",
			Sources:     cli.NewValueSourceChain(configSources(ns, "preload")...),
			HideDefault: true,
		},
		&cli.BoolFlag{
			Name:        "singleflight",
			Usage:       "share one request between concurrent cold reads",
			Sources:     cli.NewValueSourceChain(configSources(ns, "singleflight")...),
			HideDefault: true,
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of attributes to sort the results by",
			Sources: cli.NewValueSourceChain(configSources(ns, "sort")[:1]...),
		},
		&cli.BoolFlag{
			Name:        "stats",
			Usage:       "print cache tier statistics when done",
			HideDefault: true,
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(configSources(ns, "titles")...),
			Value:   false,
		},
	}

	return
}

// NewConnectionFlags returns the flags that configure the API client.
func NewConnectionFlags(ns string) []cli.Flag {
	defaults := apiclient.DefaultConfig()
	return []cli.Flag{
		NewHostFlag(ns, cfg.Source),
		NewTokenFlag(ns, cfg.Source),
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "retries for failed requests",
			Sources: cli.NewValueSourceChain(configSources(ns, "retries")...),
			Value:   defaults.RetryMax,
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "per request timeout",
			Sources: cli.NewValueSourceChain(configSources(ns, "timeout")...),
			Value:   defaults.Timeout,
		},
	}
}

// NewHostFlag constructs a cli.StringFlag for the "host" flag, optionally
// namespaced to a command and config file. params[1] is the config file.
func NewHostFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:    "host",
		Aliases: []string{"H"},
		Usage:   "API base URL, e.g. https://admin.example.com",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("SAASCTL_HOST"),
		),
	}

	if len(params) == 2 {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NewTokenFlag constructs a cli.StringFlag for the bearer token, optionally
// namespaced to a command and config file.
func NewTokenFlag(params ...string) (flag *cli.StringFlag) {
	flag = &cli.StringFlag{
		Name:  "token",
		Usage: "bearer token sent with every request",
		Sources: cli.NewValueSourceChain(
			cli.EnvVar("SAASCTL_TOKEN"),
		),
		HideDefault: true,
	}

	if len(params) == 2 {
		flag = NameSpacedValueChainFlagFromConfigFile(params[0], params[1], flag)
	}

	return
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}

// idFlag selects one record of a resource.
func idFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "id",
		Usage:    "record id",
		Required: required,
		Validator: func(value string) error {
			return FlagValidators(value, JammedFlagValidator)
		},
	}
}

// queryFlag adds key=value query parameters.
func queryFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "query",
		Aliases: []string{"q"},
		Usage:   "query parameter as key=value, repeatable",
	}
}
