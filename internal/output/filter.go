// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
)

// filterRegex splits key, operator and target. Operators are one of
// = ^ ~ < > @ /, optionally negated with a leading !.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses a comma separated filter spec. SAASCTL_FILTER_DELIM
// overrides the delimiter. Malformed entries are logged and skipped.
func BuildFilters(spec string) []Filter {
	if spec == "" {
		return nil
	}

	delim := ","
	if d, ok := os.LookupEnv("SAASCTL_FILTER_DELIM"); ok && d != "" {
		delim = d
	}

	var filters []Filter //nolint:prealloc
	for _, fs := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(fs)
		if parts == nil || parts[1] == "" {
			log.Errorf("invalid filter: %s", fs)
			continue
		}

		op := parts[2]
		negate := strings.HasPrefix(op, "!")
		filters = append(filters, Filter{
			Key:     parts[1],
			Negate:  negate,
			Operand: strings.TrimPrefix(op, "!"),
			Target:  parts[3],
		})
	}
	return filters
}

// Match reports whether row passes every filter. A filter on a column the
// row does not have is ignored.
func Match(row map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		value, ok := row[f.Key]
		if !ok {
			log.Warnf("filter key not found: %s", f.Key)
			continue
		}
		if value == nil {
			return false
		}

		var pass bool
		switch v := value.(type) {
		case string:
			pass = matchString(v, f)
		case bool:
			pass = matchString(strconv.FormatBool(v), f)
		case float64:
			pass = matchNumber(v, f)
		default:
			pass = matchContains(v, f)
		}
		if !pass {
			return false
		}
	}
	return true
}

func matchString(value string, f Filter) bool {
	var hit bool
	switch f.Operand {
	case "=":
		hit = value == f.Target
	case "~":
		hit = strings.EqualFold(value, f.Target)
	case "^":
		hit = strings.HasPrefix(value, f.Target)
	case ">":
		hit = value > f.Target
	case "<":
		hit = value < f.Target
	case "@":
		hit = strings.Contains(value, f.Target)
	case "/":
		re, err := regexp.Compile(f.Target)
		if err != nil {
			log.Errorf("invalid regex: %s", f.Target)
			return false
		}
		hit = re.MatchString(value)
	default:
		return false
	}
	return hit != f.Negate
}

func matchNumber(value float64, f Filter) bool {
	target, err := strconv.ParseFloat(strings.TrimSpace(f.Target), 64)
	if err != nil {
		// Not a numeric target, compare as text.
		return matchString(strconv.FormatFloat(value, 'f', -1, 64), f)
	}

	var hit bool
	switch f.Operand {
	case "=":
		hit = value == target
	case ">":
		hit = value > target
	case "<":
		hit = value < target
	default:
		return matchString(strconv.FormatFloat(value, 'f', -1, 64), f)
	}
	return hit != f.Negate
}

func matchContains(value interface{}, f Filter) bool {
	if f.Operand != "@" {
		return false
	}

	var hit bool
	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if fmt.Sprint(item) == f.Target {
				hit = true
				break
			}
		}
	case map[string]interface{}:
		_, hit = v[f.Target]
	default:
		return false
	}
	return hit != f.Negate
}
