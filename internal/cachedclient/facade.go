// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachedclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/saasctl/internal/apiclient"
	"github.com/staranto/saasctl/internal/cachekey"
	"github.com/staranto/saasctl/internal/strategy"
	"github.com/staranto/saasctl/internal/tier"
	"github.com/staranto/saasctl/internal/ttlstore"
)

// Client is the uncached API surface the facade sits on. *apiclient.Client
// satisfies it.
type Client interface {
	Get(ctx context.Context, url string, cfg *apiclient.RequestConfig) (json.RawMessage, error)
	Post(ctx context.Context, url string, body any, cfg *apiclient.RequestConfig) (json.RawMessage, error)
	Put(ctx context.Context, url string, body any, cfg *apiclient.RequestConfig) (json.RawMessage, error)
	Patch(ctx context.Context, url string, body any, cfg *apiclient.RequestConfig) (json.RawMessage, error)
	Delete(ctx context.Context, url string, cfg *apiclient.RequestConfig) (json.RawMessage, error)
	Upload(ctx context.Context, url string, form *apiclient.FormData, cfg *apiclient.RequestConfig) (json.RawMessage, error)
}

var _ Client = (*apiclient.Client)(nil)

// Facade is the cached request API. It is safe for concurrent use.
type Facade struct {
	client   Client
	registry *tier.Registry
	resolver *strategy.Resolver
	rules    []InvalidationRule
	logger   log.Interface

	disabled bool
	flight   *singleflight.Group
}

// Option customizes a Facade.
type Option func(*Facade)

// WithTable replaces strategy.DefaultTable.
func WithTable(table []strategy.Policy) Option {
	return func(f *Facade) {
		f.resolver = strategy.NewResolver(table, f.registry)
	}
}

// WithInvalidationRules replaces DefaultInvalidationRules.
func WithInvalidationRules(rules []InvalidationRule) Option {
	return func(f *Facade) {
		f.rules = append([]InvalidationRule(nil), rules...)
	}
}

// WithSingleFlight collapses concurrent cold reads of the same key into one
// request. Off by default: every cold reader hits the network.
func WithSingleFlight() Option {
	return func(f *Facade) {
		f.flight = &singleflight.Group{}
	}
}

// WithCacheDisabled makes every call go straight to the client. Invalidation
// still runs so the stores stay consistent if re-enabled.
func WithCacheDisabled(disabled bool) Option {
	return func(f *Facade) {
		f.disabled = disabled
	}
}

// WithLogger sets the logger. Defaults to the apex/log package logger.
func WithLogger(l log.Interface) Option {
	return func(f *Facade) {
		f.logger = l
	}
}

// New returns a facade over client using the stores in registry.
func New(client Client, registry *tier.Registry, opts ...Option) *Facade {
	f := &Facade{
		client:   client,
		registry: registry,
		resolver: strategy.NewResolver(strategy.DefaultTable(), registry),
		rules:    DefaultInvalidationRules(),
		logger:   log.Log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Resolver exposes the policy table in use.
func (f *Facade) Resolver() *strategy.Resolver {
	return f.resolver
}

// Get returns the response for url, from cache when a fresh entry exists.
// Only successful responses are cached. cfg.Query is sent but is not part of
// the cache key, so parameters that select a different document belong in
// url. Callers get their own copy of the bytes and may modify it.
func (f *Facade) Get(ctx context.Context, url string, cfg *apiclient.RequestConfig) (json.RawMessage, error) {
	strat := f.resolver.Resolve(url)
	if f.disabled || !strat.Cached() {
		return f.client.Get(ctx, url, cfg)
	}

	key := cachekey.Get(url)
	if data, ok := strat.Store.Get(key); ok {
		f.logger.WithFields(log.Fields{"key": key, "tier": strat.Tier}).Debug("cache hit")
		return bytes.Clone(data), nil
	}
	f.logger.WithFields(log.Fields{"key": key, "tier": strat.Tier}).Debug("cache miss")

	fetch := func() (json.RawMessage, error) {
		data, err := f.client.Get(ctx, url, cfg)
		if err != nil {
			return nil, err
		}
		strat.Store.SetWithTTL(key, bytes.Clone(data), strat.TTL)
		return data, nil
	}

	if f.flight == nil {
		return fetch()
	}

	v, err, shared := f.flight.Do(key, func() (any, error) {
		return fetch()
	})
	if shared {
		f.logger.WithField("key", key).Debug("shared in-flight request")
	}
	if err != nil {
		return nil, err
	}
	if shared {
		return bytes.Clone(v.(json.RawMessage)), nil
	}
	return v.(json.RawMessage), nil
}

func (f *Facade) Post(ctx context.Context, url string, body any, cfg *apiclient.RequestConfig) (json.RawMessage, error) {
	return f.mutate(http.MethodPost, url, body, func() (json.RawMessage, error) {
		return f.client.Post(ctx, url, body, cfg)
	})
}

func (f *Facade) Put(ctx context.Context, url string, body any, cfg *apiclient.RequestConfig) (json.RawMessage, error) {
	return f.mutate(http.MethodPut, url, body, func() (json.RawMessage, error) {
		return f.client.Put(ctx, url, body, cfg)
	})
}

func (f *Facade) Patch(ctx context.Context, url string, body any, cfg *apiclient.RequestConfig) (json.RawMessage, error) {
	return f.mutate(http.MethodPatch, url, body, func() (json.RawMessage, error) {
		return f.client.Patch(ctx, url, body, cfg)
	})
}

func (f *Facade) Delete(ctx context.Context, url string, cfg *apiclient.RequestConfig) (json.RawMessage, error) {
	return f.mutate(http.MethodDelete, url, nil, func() (json.RawMessage, error) {
		return f.client.Delete(ctx, url, cfg)
	})
}

// Upload sends form as multipart data. It invalidates like any other
// mutation.
func (f *Facade) Upload(ctx context.Context, url string, form *apiclient.FormData, cfg *apiclient.RequestConfig) (json.RawMessage, error) {
	return f.mutate(http.MethodPost, url, nil, func() (json.RawMessage, error) {
		return f.client.Upload(ctx, url, form, cfg)
	})
}

// mutate runs call and, only if it succeeds, the invalidation pass. Errors
// are returned as is.
func (f *Facade) mutate(method, url string, body any, call func() (json.RawMessage, error)) (json.RawMessage, error) {
	data, err := call()
	if err != nil {
		f.logger.WithError(err).WithField("request", cachekey.For(method, url, body)).Debug("mutation failed, cache untouched")
		return nil, err
	}
	f.invalidate(url)
	return data, nil
}

// InvalidateCache is accepted for API compatibility and only logs. It
// removes nothing; use ClearAllCaches to drop cached data.
func (f *Facade) InvalidateCache(pattern string) {
	f.logger.WithField("pattern", pattern).Info("invalidate cache requested, no entries removed")
}

// ClearAllCaches empties every tier.
func (f *Facade) ClearAllCaches() {
	f.registry.ClearAll()
	f.logger.Debug("all caches cleared")
}

// GetCacheStats returns a snapshot of every tier.
func (f *Facade) GetCacheStats() map[tier.Name]ttlstore.Stats {
	return f.registry.Stats()
}

// PreloadURLs are fetched by PreloadData.
var PreloadURLs = []string{
	"/api/super-admin/subscription-plans",
	"/api/super-admin/settings",
}

// PreloadData warms the cache with rarely changing data. Failures are logged
// and otherwise ignored.
func (f *Facade) PreloadData(ctx context.Context) {
	for _, url := range PreloadURLs {
		if _, err := f.Get(ctx, url, nil); err != nil {
			f.logger.WithError(err).WithField("url", url).Warn("preload failed")
			continue
		}
		f.logger.WithField("url", url).Debug("preloaded")
	}
}

// Close stops the tier sweepers and drops all cached data. The facade must not
// be used afterwards.
func (f *Facade) Close() {
	f.registry.Destroy()
}
