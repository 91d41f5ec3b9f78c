// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staranto/saasctl/internal/tier"
	"github.com/staranto/saasctl/internal/ttlstore"
)

// Metrics holds the cache counters, labelled by tier.
type Metrics struct {
	Registry *prometheus.Registry

	Hits        *prometheus.CounterVec
	Misses      *prometheus.CounterVec
	Evictions   *prometheus.CounterVec
	Expirations *prometheus.CounterVec
}

// New creates the counters on a private registry under namespace.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	counter := func(name, help string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      name,
			Help:      help,
		}, []string{"tier"})
	}

	return &Metrics{
		Registry:    reg,
		Hits:        counter("hits_total", "Reads served from cache"),
		Misses:      counter("misses_total", "Reads not found or expired"),
		Evictions:   counter("evictions_total", "Entries evicted to make room"),
		Expirations: counter("expirations_total", "Entries removed after their TTL"),
	}
}

// ForTier returns a ttlstore.Metrics that feeds the counters for name. Its
// signature fits tier.WithMetrics.
func (m *Metrics) ForTier(name tier.Name) ttlstore.Metrics {
	l := string(name)
	return tierMetrics{
		hit:      m.Hits.WithLabelValues(l),
		miss:     m.Misses.WithLabelValues(l),
		eviction: m.Evictions.WithLabelValues(l),
		expire:   m.Expirations.WithLabelValues(l),
	}
}

type tierMetrics struct {
	hit, miss, eviction, expire prometheus.Counter
}

func (t tierMetrics) Hit()      { t.hit.Inc() }
func (t tierMetrics) Miss()     { t.miss.Inc() }
func (t tierMetrics) Eviction() { t.eviction.Inc() }
func (t tierMetrics) Expire()   { t.expire.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// Server exposes /metrics and /health.
type Server struct {
	server *http.Server
}

// NewServer builds a server for addr. It does not listen until Start.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
		},
	}
}

// StartAsync listens in a goroutine. Listen failures are logged.
func (s *Server) StartAsync() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", s.server.Addr).Warn("metrics server stopped")
		}
	}()
}

// Stop closes the listener and any open connections.
func (s *Server) Stop() error {
	return s.server.Close()
}
