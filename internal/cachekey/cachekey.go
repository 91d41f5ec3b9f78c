// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package cachekey derives cache keys for API requests.
package cachekey

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// bodyHashLen is how many hex characters of the body hash go into a key.
const bodyHashLen = 16

// For returns the cache key for a request. Reads key on method and URL only:
// "GET:/api/x". When body is non-nil a truncated hash of its JSON encoding is
// appended, "POST:/api/x:3f2a...". Bodies that cannot be encoded hash their
// %v form instead so a key is always produced.
func For(method, url string, body any) string {
	key := strings.ToUpper(method) + ":" + url
	if body == nil {
		return key
	}
	return key + ":" + encodeBody(body)
}

// Get is For("GET", url, nil).
func Get(url string) string {
	return For("GET", url, nil)
}

func encodeBody(body any) string {
	var raw []byte
	switch b := body.(type) {
	case []byte:
		raw = b
	case json.RawMessage:
		raw = b
	case string:
		raw = []byte(b)
	default:
		var err error
		if raw, err = json.Marshal(b); err != nil {
			raw = []byte(fmt.Sprintf("%v", b))
		}
	}
	return encodeKey(raw)[:bodyHashLen]
}

// encodeKey hashes k with MD5 and returns the hex string.
func encodeKey(k []byte) string {
	h := md5.New()
	_, _ = h.Write(k)
	return hex.EncodeToString(h.Sum(nil))
}
