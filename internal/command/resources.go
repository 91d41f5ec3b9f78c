// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/cachedclient"
	"github.com/staranto/saasctl/internal/meta"
)

// apiPrefix is the root of the super-admin API.
const apiPrefix = "/api/super-admin"

// Resource is one queryable collection of the API.
type Resource struct {
	Name  string
	Path  string
	Usage string
	// DefaultAttrs are the columns shown without --attrs. Empty means every
	// top-level scalar of the first record.
	DefaultAttrs string
}

// Resources are the collections with a query command of their own.
var Resources = []Resource{
	{Name: "companies", Path: apiPrefix + "/companies", Usage: "company query", DefaultAttrs: "id,name,status"},
	{Name: "users", Path: apiPrefix + "/users", Usage: "user query", DefaultAttrs: "id,email,name,role"},
	{Name: "employees", Path: apiPrefix + "/employees", Usage: "employee query", DefaultAttrs: "id,name,email,company_id"},
	{Name: "plans", Path: apiPrefix + "/subscription-plans", Usage: "subscription plan query", DefaultAttrs: "id,name,price,interval"},
	{Name: "settings", Path: apiPrefix + "/settings", Usage: "platform settings query"},
	{Name: "analytics", Path: apiPrefix + "/analytics", Usage: "analytics query"},
	{Name: "dashboard", Path: apiPrefix + "/dashboard/stats", Usage: "dashboard stats query"},
}

// LookupResource finds a resource by name. A value starting with / is taken
// as a literal API path.
func LookupResource(name string) (Resource, error) {
	if strings.HasPrefix(name, "/") {
		return Resource{Name: name, Path: name}, nil
	}
	for _, r := range Resources {
		if r.Name == name {
			return r, nil
		}
	}
	return Resource{}, fmt.Errorf("%w: %q", ErrUnknownResource, name)
}

// ResourceURL returns the collection path, or the record path when id is set.
func ResourceURL(r Resource, id string) string {
	if id == "" {
		return r.Path
	}
	return r.Path + "/" + url.PathEscape(id)
}

// QueryCommandAction returns the action for a resource query command. The
// read goes through the cache.
func QueryCommandAction(r Resource) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		m := GetMeta(cmd)
		log.Debugf("Executing action for %v", m.Args)

		al, err := BuildAttrs(cmd, r.DefaultAttrs)
		if err != nil {
			return err
		}
		log.Debugf("attrs: %v", al.String())

		u, err := QueryURL(cmd, ResourceURL(r, cmd.String("id")))
		if err != nil {
			return err
		}

		return withFacade(ctx, cmd, nil, func(ctx context.Context, f *cachedclient.Facade) error {
			raw, err := f.Get(ctx, u, nil)
			if err != nil {
				return err
			}
			return Emit(cmd, raw, al)
		})
	}
}

// QueryCommandBuilder constructs the query command for r.
func QueryCommandBuilder(r Resource, meta meta.Meta) *cli.Command {
	return (&APICommandBuilder{
		Name:      r.Name,
		Usage:     r.Usage,
		UsageText: fmt.Sprintf("saasctl %s [options]", r.Name),
		Flags: []cli.Flag{
			idFlag(false),
			queryFlag(),
		},
		Action: QueryCommandAction(r),
		Meta:   meta,
	}).Build()
}
