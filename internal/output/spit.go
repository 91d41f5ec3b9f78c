// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/saasctl/internal/attrs"
	"github.com/staranto/saasctl/internal/config"
)

// Formats lists the accepted --output values.
var Formats = []string{"text", "json", "raw", "yaml"}

// Options are the rendering flags shared by every command.
type Options struct {
	Format string
	Titles bool
	Color  bool
	Filter string
	Sort   string
	// Parent is the path holding the records, typically "data".
	Parent string
}

// SliceDiceSpit filters, transforms, sorts and renders a response document.
// When al has no visible columns the columns come from the first record.
func SliceDiceSpit(raw []byte, al attrs.AttrList, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	if opts.Format == "raw" {
		if len(raw) == 0 {
			return nil
		}
		_, err := fmt.Fprintf(w, "%s\n", raw)
		return err
	}

	records := Records(raw, opts.Parent)

	if len(al.Visible()) == 0 {
		al = append(DefaultAttrs(records), al...)
	}
	al.SetGlobalTransformSpec()
	log.Debugf("attrs: %s", al.String())

	filters := BuildFilters(opts.Filter)

	rows := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		row := Project(rec, al)
		if !Match(row, filters) {
			continue
		}
		for _, attr := range al {
			if attr.TransformSpec != "" {
				row[attr.OutputKey] = attr.Transform(row[attr.OutputKey])
			}
		}
		rows = append(rows, row)
	}

	SortDataset(rows, opts.Sort)

	visible := al.Visible()

	switch opts.Format {
	case "json":
		doc, err := json.MarshalIndent(trim(rows, visible), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal json output: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", doc)
		return err
	case "yaml":
		doc, err := yaml.Marshal(trim(rows, visible))
		if err != nil {
			return fmt.Errorf("failed to marshal yaml output: %w", err)
		}
		_, err = w.Write(doc)
		return err
	default:
		return TableWriter(rows, visible, opts.Titles, ColorEnabled(opts.Color, w), w)
	}
}

// trim drops hidden columns.
func trim(rows []map[string]interface{}, visible attrs.AttrList) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		r := make(map[string]interface{}, len(visible))
		for _, attr := range visible {
			r[attr.OutputKey] = row[attr.OutputKey]
		}
		out = append(out, r)
	}
	return out
}

// TableWriter renders rows as a borderless table, one column per attr.
func TableWriter(rows []map[string]interface{}, columns attrs.AttrList, titles, color bool, w io.Writer) error {
	if len(rows) == 0 || len(columns) == 0 {
		return nil
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if color {
		headerColor, evenColor, oddColor := getColors("colors")
		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 2) //nolint:mnd

	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		line := make([]string, 0, len(columns))
		for _, attr := range columns {
			line = append(line, InterfaceToString(r[attr.OutputKey], "-"))
		}
		body = append(body, line)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}
			if col > 0 {
				style = style.PaddingLeft(pad)
			}
			return style
		}).
		Rows(body...)

	if titles {
		headers := make([]string, 0, len(columns))
		for _, attr := range columns {
			headers = append(headers, attr.OutputKey)
		}
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// ColorEnabled reports whether color output should be used on w. It needs
// the flag, a terminal and no NO_COLOR in the environment.
func ColorEnabled(want bool, w io.Writer) bool {
	if !want {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(key+".title", "#f6be00")
	even, _ = config.GetString(key+".even", "#ffffff")
	odd, _ = config.GetString(key+".odd", "#00c8f0")
	return
}

// InterfaceToString converts a decoded JSON value to display text. Zero
// values render as emptyValue, default "".
func InterfaceToString(value interface{}, emptyValue ...string) string {
	empty := ""
	if len(emptyValue) > 0 {
		empty = emptyValue[0]
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return empty
	}

	switch v := value.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
