// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/meta"
	"github.com/staranto/saasctl/internal/strategy"
	"github.com/staranto/saasctl/internal/tier"
)

const (
	policyAttrs  = "index,url,tier,ttl,shadowed_by"
	resolveAttrs = "url,tier,ttl,policy"
)

type policyRow struct {
	Index      int    `json:"index"`
	URL        string `json:"url"`
	Tier       string `json:"tier"`
	TTL        string `json:"ttl"`
	ShadowedBy string `json:"shadowed_by,omitempty"`
}

type resolveRow struct {
	URL    string `json:"url"`
	Tier   string `json:"tier"`
	TTL    string `json:"ttl"`
	Policy string `json:"policy"`
}

// PolicyDocument lists the policy table in resolution order with the
// effective TTL of each entry. With shadowsOnly, only entries that can never
// match are listed.
func PolicyDocument(r *strategy.Resolver, shadowsOnly bool) ([]byte, error) {
	shadowedBy := map[int]string{}
	for _, s := range r.Shadows() {
		shadowedBy[s.Index] = s.By.URLSubstring
	}

	var rows []policyRow
	for i, p := range r.Table() {
		if shadowsOnly && shadowedBy[i] == "" {
			continue
		}
		row := policyRow{
			Index:      i,
			URL:        p.URLSubstring,
			Tier:       string(p.Tier),
			ShadowedBy: shadowedBy[i],
		}
		if row.Tier == "" {
			row.Tier = "none"
		}
		// Resolving the substring itself yields the entry's effective TTL
		// unless it is shadowed, in which case the TTL is computed directly.
		if strat := r.Resolve(p.URLSubstring); strat.Index == i && strat.Cached() {
			row.TTL = strat.TTL.String()
		} else if p.TTLOverride > 0 {
			row.TTL = p.TTLOverride.String()
		}
		rows = append(rows, row)
	}

	doc, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy table: %w", err)
	}
	return doc, nil
}

// ResolveDocument shows the strategy chosen for each url.
func ResolveDocument(r *strategy.Resolver, urls []string) ([]byte, error) {
	table := r.Table()
	rows := make([]resolveRow, 0, len(urls))
	for _, u := range urls {
		strat := r.Resolve(u)
		row := resolveRow{URL: u, Tier: "none"}
		if strat.Cached() {
			row.Tier = string(strat.Tier)
			row.TTL = strat.TTL.String()
		}
		if strat.Index >= 0 {
			row.Policy = table[strat.Index].URLSubstring
		}
		rows = append(rows, row)
	}

	doc, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resolution: %w", err)
	}
	return doc, nil
}

func PoliciesCommandAction(_ context.Context, cmd *cli.Command) error {
	log.Debugf("Executing action for %v", GetMeta(cmd).Args)

	registry, err := tier.NewRegistry()
	if err != nil {
		return err
	}
	defer registry.Destroy()

	r := strategy.NewResolver(strategy.DefaultTable(), registry)

	var (
		doc      []byte
		defaults string
	)
	if urls := cmd.Args().Slice(); len(urls) > 0 {
		doc, err = ResolveDocument(r, urls)
		defaults = resolveAttrs
	} else {
		doc, err = PolicyDocument(r, cmd.Bool("shadows"))
		defaults = policyAttrs
	}
	if err != nil {
		return err
	}

	al, err := BuildAttrs(cmd, defaults)
	if err != nil {
		return err
	}
	return emitReport(cmd, doc, al)
}

func PoliciesCommandBuilder(meta meta.Meta) *cli.Command {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "shadows",
			Usage:       "only list policies hidden by an earlier one",
			HideDefault: true,
		},
	}
	flags = append(flags, NewGlobalFlags("policies")...)

	return &cli.Command{
		Name:      "policies",
		Usage:     "show the cache policy table or resolve URLs against it",
		UsageText: "saasctl policies [URL...] [--shadows] [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags:  flags,
		Action: PoliciesCommandAction,
	}
}
