// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/apiclient"
	"github.com/staranto/saasctl/internal/cachedclient"
	"github.com/staranto/saasctl/internal/meta"
)

// ErrMissingResource is returned when a mutation is run without a resource.
var ErrMissingResource = errors.New("resource argument is required")

// dataFlag carries a JSON request body.
func dataFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "JSON request body, or @file to read it from a file",
		Required: required,
	}
}

// readBody returns the --data value as JSON. A leading @ names a file, and
// @- reads stdin.
func readBody(cmd *cli.Command) (json.RawMessage, error) {
	data := cmd.String("data")
	if data == "" {
		return nil, nil
	}

	if name, ok := strings.CutPrefix(data, "@"); ok {
		var (
			b   []byte
			err error
		)
		if name == "-" {
			b, err = io.ReadAll(os.Stdin)
		} else {
			b, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read --data: %w", err)
		}
		data = string(b)
	}

	if !json.Valid([]byte(data)) {
		return nil, fmt.Errorf("--data is not valid JSON")
	}
	return json.RawMessage(data), nil
}

// resourceArg resolves the first positional argument.
func resourceArg(cmd *cli.Command) (Resource, error) {
	if cmd.Args().Len() == 0 {
		return Resource{}, ErrMissingResource
	}
	return LookupResource(cmd.Args().First())
}

// mutationAction wraps the shared steps of every mutation: resolve the
// resource, build the facade, call it, render the response.
func mutationAction(call func(context.Context, *cli.Command, *cachedclient.Facade, Resource) ([]byte, error)) func(context.Context, *cli.Command) error {
	return func(ctx context.Context, cmd *cli.Command) error {
		log.Debugf("Executing action for %v", GetMeta(cmd).Args)

		r, err := resourceArg(cmd)
		if err != nil {
			return err
		}

		al, err := BuildAttrs(cmd)
		if err != nil {
			return err
		}

		return withFacade(ctx, cmd, nil, func(ctx context.Context, f *cachedclient.Facade) error {
			raw, err := call(ctx, cmd, f, r)
			if err != nil {
				return err
			}
			return Emit(cmd, raw, al)
		})
	}
}

func CreateCommandBuilder(meta meta.Meta) *cli.Command {
	return (&APICommandBuilder{
		Name:      "create",
		Usage:     "create a record",
		UsageText: "saasctl create <resource|/path> --data JSON [options]",
		Flags:     []cli.Flag{dataFlag(true)},
		Action: mutationAction(func(ctx context.Context, cmd *cli.Command, f *cachedclient.Facade, r Resource) ([]byte, error) {
			body, err := readBody(cmd)
			if err != nil {
				return nil, err
			}
			return f.Post(ctx, r.Path, body, nil)
		}),
		Meta: meta,
	}).Build()
}

func UpdateCommandBuilder(meta meta.Meta) *cli.Command {
	return (&APICommandBuilder{
		Name:      "update",
		Usage:     "replace or patch a record",
		UsageText: "saasctl update <resource|/path> --id ID --data JSON [--patch] [options]",
		Flags: []cli.Flag{
			idFlag(false),
			dataFlag(true),
			&cli.BoolFlag{
				Name:        "patch",
				Usage:       "send PATCH instead of PUT",
				HideDefault: true,
			},
		},
		Action: mutationAction(func(ctx context.Context, cmd *cli.Command, f *cachedclient.Facade, r Resource) ([]byte, error) {
			body, err := readBody(cmd)
			if err != nil {
				return nil, err
			}
			u := ResourceURL(r, cmd.String("id"))
			if cmd.Bool("patch") {
				return f.Patch(ctx, u, body, nil)
			}
			return f.Put(ctx, u, body, nil)
		}),
		Meta: meta,
	}).Build()
}

func DeleteCommandBuilder(meta meta.Meta) *cli.Command {
	return (&APICommandBuilder{
		Name:      "delete",
		Usage:     "delete a record",
		UsageText: "saasctl delete <resource|/path> --id ID [options]",
		Flags:     []cli.Flag{idFlag(true)},
		Action: mutationAction(func(ctx context.Context, cmd *cli.Command, f *cachedclient.Facade, r Resource) ([]byte, error) {
			return f.Delete(ctx, ResourceURL(r, cmd.String("id")), nil)
		}),
		Meta: meta,
	}).Build()
}

func UploadCommandBuilder(meta meta.Meta) *cli.Command {
	return (&APICommandBuilder{
		Name:      "upload",
		Usage:     "upload a file as multipart form data",
		UsageText: "saasctl upload <resource|/path> --file PATH [--field NAME] [--form k=v] [options]",
		Flags: []cli.Flag{
			idFlag(false),
			&cli.StringFlag{
				Name:      "file",
				Usage:     "file to upload",
				Required:  true,
				TakesFile: true,
			},
			&cli.StringFlag{
				Name:  "field",
				Usage: "form field name for the file",
				Value: "file",
			},
			&cli.StringSliceFlag{
				Name:  "form",
				Usage: "extra form field as key=value, repeatable",
			},
		},
		Action: mutationAction(func(ctx context.Context, cmd *cli.Command, f *cachedclient.Facade, r Resource) ([]byte, error) {
			form, closer, err := buildForm(cmd)
			if err != nil {
				return nil, err
			}
			defer closer()
			return f.Upload(ctx, ResourceURL(r, cmd.String("id")), form, nil)
		}),
		Meta: meta,
	}).Build()
}

// buildForm opens --file and collects --form fields. The returned func
// closes the file.
func buildForm(cmd *cli.Command) (*apiclient.FormData, func(), error) {
	fields := map[string]string{}
	for _, p := range cmd.StringSlice("form") {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, nil, fmt.Errorf("invalid --form %q: want key=value", p)
		}
		fields[k] = v
	}

	path := cmd.String("file")
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload: %w", err)
	}

	form := &apiclient.FormData{
		Fields: fields,
		Files: []apiclient.FormFile{{
			Field:    cmd.String("field"),
			Filename: filepath.Base(path),
			Content:  fh,
		}},
	}
	return form, func() { _ = fh.Close() }, nil
}
