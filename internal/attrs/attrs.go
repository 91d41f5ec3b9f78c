// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package attrs parses the --attrs flag: which JSON fields of an API record
// become output columns, what they are called, and how they are transformed.
package attrs

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

// Attr is one output column.
type Attr struct {
	// Key is the gjson path extracted from each record.
	Key string `yaml:"key"`
	// Include is false for columns used only for filtering and sorting.
	Include bool `yaml:"include"`
	// OutputKey names the column in text output and the field in json/yaml.
	OutputKey string `yaml:"outputKey"`
	// TransformSpec is a set of single-letter transforms plus an optional
	// length: l/L lower, u/U upper, t/T local time, N truncate, -N elide.
	TransformSpec string `yaml:"transformSpec"`
}

var lengthRe = regexp.MustCompile(`-?\d+`)

// Transform applies TransformSpec to value. Only strings are transformed;
// anything else is returned as is.
func (a *Attr) Transform(value interface{}) interface{} {
	result, ok := value.(string)
	if !ok || a.TransformSpec == "" {
		return value
	}

	if strings.ContainsAny(a.TransformSpec, "tT") {
		result = toLocal(result)
	}

	// The last case letter wins, so a column spec overrides a global one.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")
	switch {
	case lastL > lastU:
		result = strings.ToLower(result)
	case lastU > lastL:
		result = strings.ToUpper(result)
	}

	// Likewise the last length wins.
	if match := lengthRe.FindAllString(a.TransformSpec, -1); len(match) != 0 {
		l, _ := strconv.Atoi(match[len(match)-1])
		result = clip(result, l)
	}

	return result
}

// toLocal converts an RFC3339 timestamp to SAASCTL_TZ, or TZ. Without either
// the value is returned unchanged.
func toLocal(value string) string {
	tz := os.Getenv("SAASCTL_TZ")
	if tz == "" {
		tz = os.Getenv("TZ")
	}
	if tz == "" {
		return value
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.WithError(err).Debugf("unknown timezone %s", tz)
		return value
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.In(loc).Format("2006-01-02T15:04:05MST")
}

// clip truncates s to n runes. A negative n keeps both ends and elides the
// middle with "..".
func clip(s string, n int) string {
	r := []rune(s)
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if abs == 0 || len(r) <= abs {
		return s
	}
	if n > 0 {
		return string(r[:n])
	}
	side := abs/2 - 1
	if side < 1 {
		return string(r[:abs])
	}
	return string(r[:side]) + ".." + string(r[len(r)-side:])
}

// AttrList is the parsed --attrs flag.
type AttrList []Attr

// String renders the list in the same shape --attrs accepts.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses a comma separated spec and merges it into the list. Each entry is
// key[:output[:transform]]. A leading ! keeps the column for filtering and
// sorting but hides it. The key * carries a transform for every column.
// Entries naming an existing key or output key update it in place.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	const (
		keyIdx = iota
		outputIdx
		transformIdx
	)

specloop:
	for _, spec := range strings.Split(value, ",") {
		fields := strings.Split(spec, ":")
		if len(fields) > 3 { //nolint:mnd
			return fmt.Errorf("invalid attr spec %q: too many fields", spec)
		}

		attr := Attr{Include: true}
		attr.Key = strings.TrimSpace(fields[keyIdx])
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = attr.Key[1:]
		}
		if attr.Key == "" {
			return fmt.Errorf("invalid attr spec %q: empty key", spec)
		}
		if attr.Key == "*" {
			attr.Include = false
		}

		// The output key defaults to the last segment of the path.
		attr.OutputKey = attr.Key
		if len(fields) > outputIdx && strings.TrimSpace(fields[outputIdx]) != "" {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		} else if i := strings.LastIndex(attr.Key, "."); i >= 0 {
			attr.OutputKey = attr.Key[i+1:]
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec prefixes every attr's transform with the one given
// on the * entry, if any.
func (a *AttrList) SetGlobalTransformSpec() {
	spec := ""
	for _, attr := range *a {
		if attr.Key == "*" {
			spec = attr.TransformSpec
			break
		}
	}
	if spec == "" {
		return
	}

	for i := range *a {
		(*a)[i].TransformSpec = spec + "," + (*a)[i].TransformSpec
	}
}

// Visible returns the attrs that appear in output.
func (a AttrList) Visible() AttrList {
	out := make(AttrList, 0, len(a))
	for _, attr := range a {
		if attr.Include {
			out = append(out, attr)
		}
	}
	return out
}

// Lookup returns the attr whose OutputKey is name.
func (a AttrList) Lookup(name string) (Attr, bool) {
	for _, attr := range a {
		if attr.OutputKey == name {
			return attr, true
		}
	}
	return Attr{}, false
}

// Type satisfies the pflag-style Value interface.
func (a *AttrList) Type() string {
	return "list"
}
