// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Config holds the connection settings for a Client.
type Config struct {
	// BaseURL is the scheme and host, e.g. https://admin.example.com.
	// Relative request URLs are resolved against it.
	BaseURL      string
	Token        string
	UserAgent    string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultConfig returns settings suited to an interactive CLI: a short
// timeout and a couple of retries.
func DefaultConfig() Config {
	return Config{
		UserAgent:    "saasctl",
		Timeout:      30 * time.Second,
		RetryMax:     2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
	}
}

// Client performs JSON requests against the API.
type Client struct {
	base      *url.URL
	token     string
	userAgent string
	http      *retryablehttp.Client
}

// Option customizes a Client.
type Option func(*retryablehttp.Client)

// WithTransport replaces the pooled transport, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *retryablehttp.Client) {
		c.HTTPClient.Transport = rt
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(policy retryablehttp.CheckRetry) Option {
	return func(c *retryablehttp.Client) {
		c.CheckRetry = policy
	}
}

// New validates cfg and builds a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrEmptyBaseURL
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must include scheme and host", cfg.BaseURL)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = cleanhttp.DefaultPooledClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.CheckRetry = DefaultRetryPolicy
	rc.Logger = leveledLogger{inner: log.WithField("subsystem", "apiclient")}
	// Hand the last response back after retries run out so the caller gets an
	// HTTPError with the real status instead of a generic "giving up" error.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	for _, opt := range opts {
		opt(rc)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = "saasctl"
	}

	return &Client{
		base:      base,
		token:     cfg.Token,
		userAgent: ua,
		http:      rc,
	}, nil
}

// DefaultRetryPolicy wraps retryablehttp.DefaultRetryPolicy. 429 is not
// retried so rate limiting surfaces to the caller right away.
func DefaultRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) Get(ctx context.Context, url string, cfg *RequestConfig) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, url, nil, "", cfg)
}

func (c *Client) Post(ctx context.Context, url string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPost, url, body, cfg)
}

func (c *Client) Put(ctx context.Context, url string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPut, url, body, cfg)
}

func (c *Client) Patch(ctx context.Context, url string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	return c.doJSON(ctx, http.MethodPatch, url, body, cfg)
}

func (c *Client) Delete(ctx context.Context, url string, cfg *RequestConfig) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, url, nil, "", cfg)
}

// Upload POSTs form as multipart/form-data.
func (c *Client) Upload(ctx context.Context, url string, form *FormData, cfg *RequestConfig) (json.RawMessage, error) {
	payload, contentType, err := encodeForm(form)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, url, payload, contentType, cfg)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any, cfg *RequestConfig) (json.RawMessage, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	contentType := ""
	if payload != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, url, payload, contentType, cfg)
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload []byte, contentType string, cfg *RequestConfig) (json.RawMessage, error) {
	target, err := c.resolve(rawURL, cfg)
	if err != nil {
		return nil, err
	}

	// A nil []byte must not become a non-nil empty body.
	var body any
	if payload != nil {
		body = payload
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cfg != nil {
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	var doc bytes.Buffer
	if _, err := doc.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.WithFields(log.Fields{
		"method":   method,
		"url":      target,
		"status":   resp.StatusCode,
		"bytes":    doc.Len(),
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       bytes.TrimSpace(doc.Bytes()),
		}
	}

	raw := bytes.TrimSpace(doc.Bytes())
	if len(raw) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%s %s: %w", method, target, ErrNotJSON)
	}
	return json.RawMessage(raw), nil
}

// resolve turns a request URL into an absolute URL with cfg.Query merged in.
func (c *Client) resolve(rawURL string, cfg *RequestConfig) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse request URL %q: %w", rawURL, err)
	}
	u := c.base.ResolveReference(ref)

	if cfg == nil || cfg.Query == nil {
		return u.String(), nil
	}

	var extra url.Values
	switch q := cfg.Query.(type) {
	case url.Values:
		extra = q
	case map[string]string:
		extra = url.Values{}
		for k, v := range q {
			extra.Set(k, v)
		}
	default:
		if extra, err = query.Values(q); err != nil {
			return "", fmt.Errorf("failed to encode query: %w", err)
		}
	}

	values := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			values.Add(k, v)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return raw, nil
	}
}

func encodeForm(form *FormData) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if form != nil {
		for k, v := range form.Fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("failed to write form field %s: %w", k, err)
			}
		}
		for _, f := range form.Files {
			part, err := w.CreateFormFile(f.Field, f.Filename)
			if err != nil {
				return nil, "", fmt.Errorf("failed to create form file %s: %w", f.Filename, err)
			}
			if f.Content != nil {
				if _, err := io.Copy(part, f.Content); err != nil {
					return nil, "", fmt.Errorf("failed to copy form file %s: %w", f.Filename, err)
				}
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// leveledLogger adapts apex/log to retryablehttp. Intermediate failures are
// logged at WARN because the request may still succeed on retry.
type leveledLogger struct {
	inner log.Interface
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.with(kv).Warn(msg) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.with(kv).Warn(msg) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.with(kv).Info(msg) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.with(kv).Debug(msg) }

func (l leveledLogger) with(kv []interface{}) log.Interface {
	fields := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.inner.WithFields(fields)
}
