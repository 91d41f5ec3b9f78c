// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/saasctl/internal/attrs"
	"github.com/staranto/saasctl/internal/cachedclient"
	"github.com/staranto/saasctl/internal/cachekey"
	"github.com/staranto/saasctl/internal/meta"
	"github.com/staranto/saasctl/internal/metrics"
	"github.com/staranto/saasctl/internal/output"
)

// Batch directives. Anything else must be an HTTP method.
const (
	directiveClear      = "CLEAR"
	directiveInvalidate = "INVALIDATE"
)

// batchAttrs are the columns of the batch report.
const batchAttrs = "line,method,url,cache,size,elapsed,error"

// BatchOp is one parsed batch line.
type BatchOp struct {
	Line   int
	Method string
	// URL holds the pattern for INVALIDATE.
	URL  string
	Body json.RawMessage
}

// ParseBatch reads one operation per line: METHOD URL [JSON body], CLEAR,
// or INVALIDATE pattern. Blank lines and lines starting with # are skipped.
func ParseBatch(r io.Reader) ([]BatchOp, error) {
	var ops []BatchOp

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		verb, rest, _ := strings.Cut(line, " ")
		verb = strings.ToUpper(verb)
		rest = strings.TrimSpace(rest)

		switch verb {
		case directiveClear:
			if rest != "" {
				return nil, fmt.Errorf("line %d: CLEAR takes no arguments", n)
			}
			ops = append(ops, BatchOp{Line: n, Method: verb})
			continue
		case directiveInvalidate:
			if rest == "" {
				return nil, fmt.Errorf("line %d: INVALIDATE needs a pattern", n)
			}
			ops = append(ops, BatchOp{Line: n, Method: verb, URL: rest})
			continue
		}

		if err := MethodValidator(verb); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}

		u, body, _ := strings.Cut(rest, " ")
		body = strings.TrimSpace(body)
		if u == "" {
			return nil, fmt.Errorf("line %d: %s needs a URL", n, verb)
		}

		op := BatchOp{Line: n, Method: verb, URL: u}
		if body != "" {
			if verb == http.MethodGet || verb == http.MethodDelete {
				return nil, fmt.Errorf("line %d: %s takes no body", n, verb)
			}
			if !json.Valid([]byte(body)) {
				return nil, fmt.Errorf("line %d: body is not valid JSON", n)
			}
			op.Body = json.RawMessage(body)
		}
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	return ops, nil
}

// BatchResult is one row of the batch report.
type BatchResult struct {
	Line    int    `json:"line"`
	Method  string `json:"method"`
	URL     string `json:"url"`
	Cache   string `json:"cache,omitempty"`
	Size    string `json:"size,omitempty"`
	Elapsed string `json:"elapsed"`
	Error   string `json:"error,omitempty"`
}

// cacheState reports what a GET of u will do: hit, miss or bypass.
func cacheState(f *cachedclient.Facade, u string, disabled bool) string {
	strat := f.Resolver().Resolve(u)
	switch {
	case disabled || !strat.Cached():
		return "bypass"
	case strat.Store.Contains(cachekey.Get(u)):
		return "hit"
	default:
		return "miss"
	}
}

// RunBatch executes ops in order through f. Failed requests are recorded and
// the run continues unless failFast is set.
func RunBatch(ctx context.Context, f *cachedclient.Facade, ops []BatchOp, disabled, failFast bool) ([]BatchResult, int) {
	results := make([]BatchResult, 0, len(ops))
	failed := 0

	for _, op := range ops {
		res := BatchResult{Line: op.Line, Method: op.Method, URL: op.URL}
		start := time.Now()

		var (
			raw json.RawMessage
			err error
		)
		switch op.Method {
		case directiveClear:
			f.ClearAllCaches()
			res.Cache = "cleared"
		case directiveInvalidate:
			f.InvalidateCache(op.URL)
			res.Cache = "noop"
		case http.MethodGet:
			res.Cache = cacheState(f, op.URL, disabled)
			raw, err = f.Get(ctx, op.URL, nil)
		case http.MethodPost:
			raw, err = f.Post(ctx, op.URL, op.Body, nil)
		case http.MethodPut:
			raw, err = f.Put(ctx, op.URL, op.Body, nil)
		case http.MethodPatch:
			raw, err = f.Patch(ctx, op.URL, op.Body, nil)
		case http.MethodDelete:
			raw, err = f.Delete(ctx, op.URL, nil)
		}

		res.Elapsed = time.Since(start).Round(time.Microsecond).String()
		if err != nil {
			failed++
			res.Error = err.Error()
			log.WithError(err).WithField("line", op.Line).Debug("batch request failed")
		} else if op.Method != directiveClear && op.Method != directiveInvalidate {
			res.Size = output.Size(len(raw))
		}
		results = append(results, res)

		if err != nil && failFast {
			break
		}
	}

	return results, failed
}

// openBatch returns the batch source: the named file, or stdin for "" and
// "-".
func openBatch(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	return fh, nil
}

func BatchCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)

	src, err := openBatch(cmd.Args().First())
	if err != nil {
		return err
	}
	ops, err := ParseBatch(src)
	_ = src.Close()
	if err != nil {
		return err
	}

	al, err := BuildAttrs(cmd, batchAttrs)
	if err != nil {
		return err
	}

	reg := metrics.New(metricsNamespace)
	if addr := cmd.String("metrics-addr"); addr != "" {
		srv := metrics.NewServer(addr, reg)
		srv.StartAsync()
		defer func() {
			if err := srv.Stop(); err != nil {
				log.WithError(err).Debug("failed to stop metrics server")
			}
		}()
		log.Infof("serving metrics on %s", addr)
	}

	return withFacade(ctx, cmd, reg, func(ctx context.Context, f *cachedclient.Facade) error {
		results, failed := RunBatch(ctx, f, ops, m.CacheDisabled, cmd.Bool("fail-fast"))

		doc, err := json.Marshal(results)
		if err != nil {
			return fmt.Errorf("failed to marshal batch report: %w", err)
		}
		if err := emitReport(cmd, doc, al); err != nil {
			return err
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d batch requests failed", failed, len(ops))
		}
		return nil
	})
}

// emitReport renders the batch report; raw output would only echo the
// report document, so it is rendered as json.
func emitReport(cmd *cli.Command, doc []byte, al attrs.AttrList) error {
	opts := RenderOptions(cmd)
	if opts.Format == "raw" {
		opts.Format = "json"
	}
	return output.SliceDiceSpit(doc, al, opts, writer(cmd))
}

func BatchCommandBuilder(meta meta.Meta) *cli.Command {
	return (&APICommandBuilder{
		Name:      "batch",
		Usage:     "run many requests through one cache",
		UsageText: "saasctl batch [file|-] [options]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "fail-fast",
				Usage:       "stop at the first failed request",
				HideDefault: true,
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address while running, e.g. :9090",
			},
		},
		Action: BatchCommandAction,
		Meta:   meta,
	}).Build()
}
