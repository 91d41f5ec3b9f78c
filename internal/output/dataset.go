// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"sort"

	"github.com/tidwall/gjson"

	"github.com/staranto/saasctl/internal/attrs"
)

// Records returns the records of a response document. If parent names an
// existing path, the records are taken from there, so both {"data":[...]}
// envelopes and bare arrays work. A single object is one record.
func Records(raw []byte, parent string) []gjson.Result {
	doc := gjson.ParseBytes(raw)
	if parent != "" {
		if p := doc.Get(parent); p.Exists() {
			doc = p
		}
	}

	switch {
	case doc.IsArray():
		return doc.Array()
	case doc.IsObject():
		return []gjson.Result{doc}
	default:
		return nil
	}
}

// DefaultAttrs builds an AttrList from the top-level scalar keys of the first
// record, with id first and the rest sorted.
func DefaultAttrs(records []gjson.Result) attrs.AttrList {
	if len(records) == 0 {
		return nil
	}

	var keys []string
	hasID := false
	records[0].ForEach(func(k, v gjson.Result) bool {
		if v.IsObject() || v.IsArray() {
			return true
		}
		if k.String() == "id" {
			hasID = true
			return true
		}
		keys = append(keys, k.String())
		return true
	})
	sort.Strings(keys)
	if hasID {
		keys = append([]string{"id"}, keys...)
	}

	al := make(attrs.AttrList, 0, len(keys))
	for _, k := range keys {
		al = append(al, attrs.Attr{Key: k, OutputKey: k, Include: true})
	}
	return al
}

// Project extracts every attr from record into a row keyed by OutputKey.
func Project(record gjson.Result, al attrs.AttrList) map[string]interface{} {
	row := make(map[string]interface{}, len(al))
	for _, attr := range al {
		if attr.Key == "*" {
			continue
		}
		row[attr.OutputKey] = record.Get(attr.Key).Value()
	}
	return row
}
