// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ttlstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/benbjohnson/clock"
)

// Sentinel errors returned by New.
var (
	ErrInvalidMaxSize = errors.New("max size must be greater than zero")
	ErrInvalidTTL     = errors.New("default TTL must be greater than zero")
)

// Config is fixed at construction time.
type Config struct {
	// DefaultTTL applies to entries written without an explicit TTL.
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`
	// MaxSize bounds the number of entries, expired or not, held at once.
	MaxSize int `yaml:"max_size" json:"max_size"`
	// CleanupInterval is the period of the active sweep. Zero disables it.
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	Total   int `yaml:"total" json:"total"`
	Valid   int `yaml:"valid" json:"valid"`
	Expired int `yaml:"expired" json:"expired"`
	MaxSize int `yaml:"max_size" json:"max_size"`
}

// Store is a bounded TTL cache. When full, the entry with the oldest creation
// time is evicted. Reads do not refresh an entry's age, so this is insertion
// order eviction and not LRU.
type Store[T any] struct {
	name    string
	cfg     Config
	clock   clock.Clock
	metrics Metrics
	logger  log.Interface

	mu      sync.Mutex
	entries map[string]*Entry[T]
	seq     uint64

	stop      chan struct{}
	done      chan struct{}
	destroyed bool
}

// Option customizes a Store.
type Option func(*options)

type options struct {
	name    string
	clock   clock.Clock
	metrics Metrics
	logger  log.Interface
}

// WithName labels the store in log output.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithClock replaces the wall clock, typically with clock.NewMock() in tests.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics reports hits, misses, evictions and expirations to m.
func WithMetrics(m Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger. Defaults to the apex/log package logger.
func WithLogger(l log.Interface) Option {
	return func(o *options) { o.logger = l }
}

// New validates cfg and returns a running store. If cfg.CleanupInterval is
// positive a sweep goroutine is started; call Destroy to stop it.
func New[T any](cfg Config, opts ...Option) (*Store[T], error) {
	if cfg.MaxSize <= 0 {
		return nil, fmt.Errorf("invalid store config (max size %d): %w", cfg.MaxSize, ErrInvalidMaxSize)
	}
	if cfg.DefaultTTL <= 0 {
		return nil, fmt.Errorf("invalid store config (default ttl %s): %w", cfg.DefaultTTL, ErrInvalidTTL)
	}

	o := options{
		name:    "ttlstore",
		clock:   clock.New(),
		metrics: NoopMetrics{},
		logger:  log.Log,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		name:    o.name,
		cfg:     cfg,
		clock:   o.clock,
		metrics: o.metrics,
		logger:  o.logger.WithField("store", o.name),
		entries: make(map[string]*Entry[T], cfg.MaxSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		// The ticker is created here rather than in the goroutine so a mock
		// clock advanced right after New still sees it.
		go s.sweeper(s.clock.Ticker(cfg.CleanupInterval))
	} else {
		close(s.done)
	}

	return s, nil
}

// Name returns the label given by WithName.
func (s *Store[T]) Name() string {
	return s.name
}

// Config returns the configuration the store was built with.
func (s *Store[T]) Config() Config {
	return s.cfg
}

// Set stores value under key with the default TTL.
func (s *Store[T]) Set(key string, value T) {
	s.SetWithTTL(key, value, s.cfg.DefaultTTL)
}

// SetWithTTL stores value under key with the given TTL. A non-positive ttl
// means the default TTL. If the store is full, one entry is evicted first,
// even when key is already present.
func (s *Store[T]) SetWithTTL(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.cfg.MaxSize {
		s.evictOldest()
	}

	s.seq++
	s.entries[key] = &Entry[T]{
		Key:       key,
		Data:      value,
		CreatedAt: s.clock.Now(),
		TTL:       ttl,
		seq:       s.seq,
	}
	s.logger.Debugf("set %s ttl=%s size=%d", key, ttl, len(s.entries))
}

// Get returns the value for key if it exists and has not expired. An expired
// entry is removed as a side effect.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T

	e, ok := s.entries[key]
	if !ok {
		s.metrics.Miss()
		return zero, false
	}

	if !e.Valid(s.clock.Now()) {
		delete(s.entries, key)
		s.metrics.Expire()
		s.metrics.Miss()
		s.logger.Debugf("expired on read: %s", key)
		return zero, false
	}

	s.metrics.Hit()
	return e.Data, true
}

// Has reports whether Get would return a value for key.
func (s *Store[T]) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Contains reports whether key holds an unexpired entry. Unlike Has it
// records no metrics and never removes an expired entry.
func (s *Store[T]) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return ok && e.Valid(s.clock.Now())
}

// Delete removes key and reports whether it was present.
func (s *Store[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Clear removes every entry.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]*Entry[T], s.cfg.MaxSize)
	s.logger.Debugf("cleared %d entries", n)
}

// Len returns the number of entries, including expired ones not yet swept.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the current keys in sorted order, expired ones included.
func (s *Store[T]) Keys() []string {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Stats counts valid and expired entries against each entry's own TTL. It
// does not remove anything.
func (s *Store[T]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	st := Stats{
		Total:   len(s.entries),
		MaxSize: s.cfg.MaxSize,
	}
	for _, e := range s.entries {
		if e.Valid(now) {
			st.Valid++
		} else {
			st.Expired++
		}
	}
	return st
}

// Sweep removes every expired entry and returns how many were removed. The
// background sweeper calls this on each tick.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for k, e := range s.entries {
		if !e.Valid(now) {
			delete(s.entries, k)
			s.metrics.Expire()
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debugf("swept %d expired entries", removed)
	}
	return removed
}

// Destroy stops the sweeper and clears the store. The store must not be used
// afterwards. Calling Destroy more than once is safe.
func (s *Store[T]) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	close(s.stop)
	s.mu.Unlock()

	<-s.done
	s.Clear()
}

// evictOldest drops the entry with the smallest creation time. Callers hold
// s.mu.
func (s *Store[T]) evictOldest() {
	var oldest *Entry[T]
	for _, e := range s.entries {
		if oldest == nil || e.older(oldest) {
			oldest = e
		}
	}
	if oldest == nil {
		return
	}
	delete(s.entries, oldest.Key)
	s.metrics.Eviction()
	s.logger.Debugf("evicted %s (created %s)", oldest.Key, oldest.CreatedAt.Format(time.RFC3339))
}

func (s *Store[T]) sweeper(ticker *clock.Ticker) {
	defer close(s.done)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
