// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/apiclient"
	"github.com/staranto/saasctl/internal/attrs"
	"github.com/staranto/saasctl/internal/cachedclient"
	"github.com/staranto/saasctl/internal/meta"
	"github.com/staranto/saasctl/internal/metrics"
	"github.com/staranto/saasctl/internal/output"
	"github.com/staranto/saasctl/internal/tier"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "saasctl"

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil || cmd.Metadata == nil {
		return meta.Meta{}
	}
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// BuildAttrs constructs an AttrList from defaults and then --attrs, so
// --attrs can hide, rename or transform a default column.
func BuildAttrs(cmd *cli.Command, defaults ...string) (attrs.AttrList, error) {
	var al attrs.AttrList
	for _, d := range defaults {
		if err := al.Set(d); err != nil {
			return nil, err
		}
	}
	if extras := cmd.String("attrs"); extras != "" {
		if err := al.Set(extras); err != nil {
			return nil, fmt.Errorf("failed to parse --attrs: %w", err)
		}
	}
	return al, nil
}

// RenderOptions collects the output flags.
func RenderOptions(cmd *cli.Command) output.Options {
	return output.Options{
		Format: cmd.String("output"),
		Titles: cmd.Bool("titles"),
		Color:  cmd.Bool("color"),
		Filter: cmd.String("filter"),
		Sort:   cmd.String("sort"),
		Parent: "data",
	}
}

// writer is where command output goes, normally stdout.
func writer(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

// Emit renders a response document with the output flags.
func Emit(cmd *cli.Command, raw []byte, al attrs.AttrList) error {
	return output.SliceDiceSpit(raw, al, RenderOptions(cmd), writer(cmd))
}

// EmitStats renders the per-tier cache stats as a titled table, or as
// json/yaml when that output was asked for.
func EmitStats(cmd *cli.Command, f *cachedclient.Facade) error {
	doc, err := output.StatsDocument(f.GetCacheStats())
	if err != nil {
		return err
	}

	var al attrs.AttrList
	if err := al.Set(output.StatsAttrs); err != nil {
		return err
	}

	opts := RenderOptions(cmd)
	opts.Titles = true
	opts.Filter = ""
	opts.Sort = ""
	if opts.Format == "raw" {
		opts.Format = "json"
	}
	return output.SliceDiceSpit(doc, al, opts, writer(cmd))
}

// ClientConfig builds the API client settings from the connection flags.
func ClientConfig(cmd *cli.Command) apiclient.Config {
	c := apiclient.DefaultConfig()
	c.BaseURL = cmd.String("host")
	c.Token = cmd.String("token")
	c.Timeout = cmd.Duration("timeout")
	c.RetryMax = cmd.Int("retries")
	return c
}

// NewFacade wires client, tier registry, metrics and facade for one command
// run. The caller must Close the facade.
func NewFacade(ctx context.Context, cmd *cli.Command, m *metrics.Metrics) (*cachedclient.Facade, error) {
	client, err := apiclient.New(ClientConfig(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	log.Debugf("client: %s", client.BaseURL())

	if m == nil {
		m = metrics.New(metricsNamespace)
	}
	registry, err := tier.NewRegistry(tier.WithMetrics(m.ForTier))
	if err != nil {
		return nil, fmt.Errorf("failed to create cache tiers: %w", err)
	}

	opts := []cachedclient.Option{
		cachedclient.WithCacheDisabled(GetMeta(cmd).CacheDisabled),
	}
	if cmd.Bool("singleflight") {
		opts = append(opts, cachedclient.WithSingleFlight())
	}

	f := cachedclient.New(client, registry, opts...)
	if cmd.Bool("preload") {
		f.PreloadData(ctx)
	}
	return f, nil
}

// withFacade runs fn with a fresh facade and prints the tier stats afterwards
// when --stats is set, even if fn failed.
func withFacade(ctx context.Context, cmd *cli.Command, m *metrics.Metrics, fn func(context.Context, *cachedclient.Facade) error) error {
	f, err := NewFacade(ctx, cmd, m)
	if err != nil {
		return err
	}
	defer f.Close()

	runErr := fn(ctx, f)

	if cmd.Bool("stats") {
		if err := EmitStats(cmd, f); err != nil {
			log.WithError(err).Warn("failed to print cache stats")
		}
	}
	return runErr
}

// QueryURL appends the --query key=value pairs to u. They go in the URL
// itself so that each distinct query is cached under its own key.
func QueryURL(cmd *cli.Command, u string) (string, error) {
	pairs := cmd.StringSlice("query")
	if len(pairs) == 0 {
		return u, nil
	}

	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return "", fmt.Errorf("invalid --query %q: want key=value", p)
		}
		q.Add(k, v)
	}

	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + q.Encode(), nil
}

// APICommandBuilder constructs a cli.Command for any command that talks to
// the API, wiring metadata, connection and global flags.
type APICommandBuilder struct {
	Name      string
	Usage     string
	UsageText string
	Flags     []cli.Flag
	Action    func(context.Context, *cli.Command) error
	Meta      meta.Meta
}

// Build returns a configured cli.Command from the builder.
func (b *APICommandBuilder) Build() *cli.Command {
	flags := append([]cli.Flag{}, b.Flags...)
	flags = append(flags, NewConnectionFlags(b.Name)...)
	flags = append(flags, NewGlobalFlags(b.Name)...)

	return &cli.Command{
		Name:      b.Name,
		Usage:     b.Usage,
		UsageText: b.UsageText,
		Metadata: map[string]any{
			"meta": b.Meta,
		},
		Flags:  flags,
		Action: b.Action,
	}
}
