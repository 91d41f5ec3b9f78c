// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package apiclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Sentinel errors. HTTP status failures are reported as *HTTPError instead.
var (
	ErrEmptyBaseURL = errors.New("base URL is empty")
	ErrNotJSON      = errors.New("response is not JSON")
)

// RequestConfig carries optional per-request settings.
type RequestConfig struct {
	// Headers are added after the client defaults and override them.
	Headers map[string]string
	// Query is appended to the request URL. It may be a url.Values or a
	// struct with `url` tags understood by go-querystring.
	Query any
}

// FormFile is one file part of a multipart upload.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// FormData is a multipart payload for Upload.
type FormData struct {
	Fields map[string]string
	Files  []FormFile
}

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if len(e.Body) > 0 {
		body := e.Body
		if len(body) > 200 { //nolint:mnd
			body = append(body[:200:200], "..."...)
		}
		msg += ": " + string(body)
	}
	return msg
}

// IsStatus reports whether err is an *HTTPError with the given status code.
func IsStatus(err error, status int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == status
}
