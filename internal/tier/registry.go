// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package tier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"

	"github.com/staranto/saasctl/internal/ttlstore"
)

// Name identifies a tier.
type Name string

const (
	Short  Name = "short"
	Medium Name = "medium"
	Long   Name = "long"
	Static Name = "static"
)

// None is the zero Name. Policies that resolve to it are never cached.
const None Name = ""

// cleanupInterval is shared by every tier.
const cleanupInterval = time.Minute

// Store is the concrete store type held by each tier. Cached values are the
// raw JSON payloads returned by the API.
type Store = ttlstore.Store[json.RawMessage]

// Names returns the tier names in fixed order, most volatile first.
func Names() []Name {
	return []Name{Short, Medium, Long, Static}
}

// Valid reports whether n is one of the four tiers.
func (n Name) Valid() bool {
	switch n {
	case Short, Medium, Long, Static:
		return true
	}
	return false
}

// DefaultConfigs returns the fixed configuration for every tier. These are
// not resized at runtime.
func DefaultConfigs() map[Name]ttlstore.Config {
	return map[Name]ttlstore.Config{
		Short:  {DefaultTTL: 30 * time.Second, MaxSize: 50, CleanupInterval: cleanupInterval},
		Medium: {DefaultTTL: 5 * time.Minute, MaxSize: 100, CleanupInterval: cleanupInterval},
		Long:   {DefaultTTL: 30 * time.Minute, MaxSize: 50, CleanupInterval: cleanupInterval},
		Static: {DefaultTTL: 24 * time.Hour, MaxSize: 20, CleanupInterval: cleanupInterval},
	}
}

// Registry holds one store per tier. There should be exactly one per process,
// built at startup and torn down with Destroy.
type Registry struct {
	stores map[Name]*Store
}

// Option customizes a Registry.
type Option func(*registryOptions)

type registryOptions struct {
	configs   map[Name]ttlstore.Config
	storeOpts []ttlstore.Option
	metrics   func(Name) ttlstore.Metrics
}

// WithConfigs replaces DefaultConfigs. Every tier in Names must be present.
func WithConfigs(configs map[Name]ttlstore.Config) Option {
	return func(o *registryOptions) { o.configs = configs }
}

// WithStoreOptions applies opts to every tier's store.
func WithStoreOptions(opts ...ttlstore.Option) Option {
	return func(o *registryOptions) { o.storeOpts = append(o.storeOpts, opts...) }
}

// WithMetrics gives each tier its own metrics sink.
func WithMetrics(factory func(Name) ttlstore.Metrics) Option {
	return func(o *registryOptions) { o.metrics = factory }
}

// NewRegistry builds the four tiers.
func NewRegistry(opts ...Option) (*Registry, error) {
	o := registryOptions{configs: DefaultConfigs()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry{stores: make(map[Name]*Store, len(o.configs))}

	for _, name := range Names() {
		cfg, ok := o.configs[name]
		if !ok {
			r.Destroy()
			return nil, fmt.Errorf("missing config for tier %s", name)
		}

		storeOpts := append([]ttlstore.Option{ttlstore.WithName(string(name))}, o.storeOpts...)
		if o.metrics != nil {
			storeOpts = append(storeOpts, ttlstore.WithMetrics(o.metrics(name)))
		}

		s, err := ttlstore.New[json.RawMessage](cfg, storeOpts...)
		if err != nil {
			r.Destroy()
			return nil, fmt.Errorf("failed to create %s tier: %w", name, err)
		}
		r.stores[name] = s
	}

	log.Debugf("tier registry ready: %v", Names())
	return r, nil
}

// Get returns the store for name, or nil if name is not a tier.
func (r *Registry) Get(name Name) *Store {
	return r.stores[name]
}

func (r *Registry) Short() *Store  { return r.stores[Short] }
func (r *Registry) Medium() *Store { return r.stores[Medium] }
func (r *Registry) Long() *Store   { return r.stores[Long] }
func (r *Registry) Static() *Store { return r.stores[Static] }

// Stats returns one record per tier.
func (r *Registry) Stats() map[Name]ttlstore.Stats {
	stats := make(map[Name]ttlstore.Stats, len(r.stores))
	for name, s := range r.stores {
		stats[name] = s.Stats()
	}
	return stats
}

// ClearAll empties every tier.
func (r *Registry) ClearAll() {
	for _, s := range r.stores {
		s.Clear()
	}
}

// Destroy stops every tier's sweeper and drops its entries.
func (r *Registry) Destroy() {
	for _, s := range r.stores {
		s.Destroy()
	}
}
