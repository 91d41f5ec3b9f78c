// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Token = "s3cret"
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond

	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrEmptyBaseURL)

	_, err = New(Config{BaseURL: "   "})
	assert.ErrorIs(t, err, ErrEmptyBaseURL)

	_, err = New(Config{BaseURL: "admin.example.com"})
	assert.ErrorContains(t, err, "must include scheme and host")

	c, err := New(Config{BaseURL: "https://admin.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "https://admin.example.com", c.BaseURL())
}

func TestGet_HeadersAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/super-admin/companies", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "saasctl", r.Header.Get("User-Agent"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		_, _ = io.WriteString(w, `  {"data":[{"id":1}]}`+"\n")
	})

	got, err := c.Get(context.Background(), "/api/super-admin/companies", &RequestConfig{
		Headers: map[string]string{"X-Extra": "yes"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":1}]}`, string(got))
}

func TestGet_QueryMerging(t *testing.T) {
	type listOptions struct {
		Page   int    `url:"page"`
		Search string `url:"search,omitempty"`
	}

	var seen url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Query()
		_, _ = io.WriteString(w, `[]`)
	})

	tests := []struct {
		name  string
		query any
		want  url.Values
	}{
		{"url.Values", url.Values{"page": {"2"}}, url.Values{"status": {"active"}, "page": {"2"}}},
		{"map", map[string]string{"page": "3"}, url.Values{"status": {"active"}, "page": {"3"}}},
		{"struct", listOptions{Page: 4, Search: "acme"}, url.Values{"status": {"active"}, "page": {"4"}, "search": {"acme"}}},
		{"struct omitempty", listOptions{Page: 5}, url.Values{"status": {"active"}, "page": {"5"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Get(context.Background(), "/api/super-admin/users?status=active", &RequestConfig{Query: tt.query})
			require.NoError(t, err)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestMutations_SendJSON(t *testing.T) {
	var method, contentType, body string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	ctx := context.Background()
	payload := map[string]string{"name": "Acme"}

	tests := []struct {
		method string
		call   func() (json.RawMessage, error)
	}{
		{http.MethodPost, func() (json.RawMessage, error) { return c.Post(ctx, "/api/super-admin/companies", payload, nil) }},
		{http.MethodPut, func() (json.RawMessage, error) { return c.Put(ctx, "/api/super-admin/companies/1", payload, nil) }},
		{http.MethodPatch, func() (json.RawMessage, error) { return c.Patch(ctx, "/api/super-admin/companies/1", payload, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := tt.call()
			require.NoError(t, err)
			assert.JSONEq(t, `{"ok":true}`, string(got))
			assert.Equal(t, tt.method, method)
			assert.Equal(t, "application/json", contentType)
			assert.JSONEq(t, `{"name":"Acme"}`, body)
		})
	}
}

func TestDelete_EmptyBodyIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Empty(t, r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})

	got, err := c.Delete(context.Background(), "/api/super-admin/users/9", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpload_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary="))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "logo", r.FormValue("kind"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "logo.png", hdr.Filename)
		assert.Equal(t, "PNGDATA", string(b))

		_, _ = io.WriteString(w, `{"url":"/files/logo.png"}`)
	})

	got, err := c.Upload(context.Background(), "/api/super-admin/companies/1/logo", &FormData{
		Fields: map[string]string{"kind": "logo"},
		Files:  []FormFile{{Field: "file", Filename: "logo.png", Content: strings.NewReader("PNGDATA")}},
	}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"url":"/files/logo.png"}`, string(got))
}

func TestHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"no such company"}`)
	})

	got, err := c.Get(context.Background(), "/api/super-admin/companies/404", nil)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))
	assert.False(t, IsStatus(err, http.StatusInternalServerError))
	assert.ErrorContains(t, err, "404 Not Found")
	assert.ErrorContains(t, err, "no such company")
}

func TestHTTPError_TruncatesBody(t *testing.T) {
	e := &HTTPError{Method: "GET", URL: "/x", StatusCode: 500, Body: []byte(strings.Repeat("x", 300))}
	msg := e.Error()
	assert.True(t, strings.HasSuffix(msg, "..."))
	assert.Less(t, len(msg), 260)
}

func TestNotJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>login</html>`)
	})

	_, err := c.Get(context.Background(), "/api/super-admin/settings", nil)
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestRetry_ServerErrorThenSuccess(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	got, err := c.Get(context.Background(), "/api/super-admin/dashboard/stats", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetry_TooManyRequestsIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Get(context.Background(), "/api/super-admin/companies", nil)
	assert.True(t, IsStatus(err, http.StatusTooManyRequests))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetry_ExhaustedReturnsHTTPError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Get(context.Background(), "/api/super-admin/companies", nil)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))
	assert.Equal(t, int32(3), calls.Load())
}
