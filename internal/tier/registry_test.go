// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package tier

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/saasctl/internal/ttlstore"
)

func newTestRegistry(t *testing.T, opts ...Option) (*Registry, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	r, err := NewRegistry(append([]Option{WithStoreOptions(ttlstore.WithClock(mock))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(r.Destroy)

	return r, mock
}

func TestDefaultConfigs(t *testing.T) {
	tests := []struct {
		name    Name
		ttl     time.Duration
		maxSize int
	}{
		{Short, 30 * time.Second, 50},
		{Medium, 5 * time.Minute, 100},
		{Long, 30 * time.Minute, 50},
		{Static, 24 * time.Hour, 20},
	}

	configs := DefaultConfigs()
	assert.Len(t, configs, 4)

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			cfg, ok := configs[tt.name]
			require.True(t, ok)
			assert.Equal(t, tt.ttl, cfg.DefaultTTL)
			assert.Equal(t, tt.maxSize, cfg.MaxSize)
			assert.Equal(t, time.Minute, cfg.CleanupInterval)
		})
	}
}

func TestNames_FixedOrder(t *testing.T) {
	assert.Equal(t, []Name{Short, Medium, Long, Static}, Names())
	for _, n := range Names() {
		assert.True(t, n.Valid())
	}
	assert.False(t, None.Valid())
	assert.False(t, Name("forever").Valid())
}

func TestRegistry_AccessorsMatchGet(t *testing.T) {
	r, _ := newTestRegistry(t)

	assert.Same(t, r.Get(Short), r.Short())
	assert.Same(t, r.Get(Medium), r.Medium())
	assert.Same(t, r.Get(Long), r.Long())
	assert.Same(t, r.Get(Static), r.Static())
	assert.Nil(t, r.Get(None))

	assert.Equal(t, "medium", r.Medium().Name())
	assert.Equal(t, 100, r.Medium().Config().MaxSize)
}

func TestRegistry_TiersAreIndependent(t *testing.T) {
	r, _ := newTestRegistry(t)

	r.Medium().Set("GET:/x", json.RawMessage(`{"a":1}`))

	assert.True(t, r.Medium().Has("GET:/x"))
	assert.False(t, r.Short().Has("GET:/x"))
	assert.False(t, r.Long().Has("GET:/x"))
	assert.False(t, r.Static().Has("GET:/x"))
}

func TestRegistry_Stats(t *testing.T) {
	r, mock := newTestRegistry(t)

	r.Short().Set("a", json.RawMessage(`1`))
	r.Long().Set("b", json.RawMessage(`2`))
	r.Long().Set("c", json.RawMessage(`3`))

	// Short expires at 30s; the sweep has not run yet at 40s.
	mock.Add(40 * time.Second)

	stats := r.Stats()
	assert.Len(t, stats, 4)
	assert.Equal(t, ttlstore.Stats{Total: 1, Valid: 0, Expired: 1, MaxSize: 50}, stats[Short])
	assert.Equal(t, ttlstore.Stats{Total: 0, Valid: 0, Expired: 0, MaxSize: 100}, stats[Medium])
	assert.Equal(t, ttlstore.Stats{Total: 2, Valid: 2, Expired: 0, MaxSize: 50}, stats[Long])
	assert.Equal(t, ttlstore.Stats{Total: 0, Valid: 0, Expired: 0, MaxSize: 20}, stats[Static])
}

func TestRegistry_ClearAll(t *testing.T) {
	r, _ := newTestRegistry(t)

	for _, n := range Names() {
		r.Get(n).Set("k", json.RawMessage(`true`))
	}
	r.ClearAll()

	for n, st := range r.Stats() {
		assert.Equal(t, 0, st.Total, string(n))
	}
}

func TestNewRegistry_MissingConfig(t *testing.T) {
	configs := DefaultConfigs()
	delete(configs, Static)

	r, err := NewRegistry(WithConfigs(configs))
	assert.Nil(t, r)
	assert.ErrorContains(t, err, "missing config for tier static")
}

func TestNewRegistry_InvalidConfig(t *testing.T) {
	configs := DefaultConfigs()
	configs[Long] = ttlstore.Config{DefaultTTL: time.Minute, MaxSize: 0}

	r, err := NewRegistry(WithConfigs(configs))
	assert.Nil(t, r)
	assert.ErrorIs(t, err, ttlstore.ErrInvalidMaxSize)
}

type tierCounter struct {
	ttlstore.NoopMetrics
	hits *int
}

func (c tierCounter) Hit() { *c.hits++ }

func TestNewRegistry_PerTierMetrics(t *testing.T) {
	hits := map[Name]*int{}
	factory := func(n Name) ttlstore.Metrics {
		hits[n] = new(int)
		return tierCounter{hits: hits[n]}
	}

	r, _ := newTestRegistry(t, WithMetrics(factory))

	r.Static().Set("k", json.RawMessage(`1`))
	_, _ = r.Static().Get("k")
	_, _ = r.Static().Get("k")

	assert.Equal(t, 2, *hits[Static])
	assert.Equal(t, 0, *hits[Short])
}
