// Package metrics exposes Prometheus instrumentation for the message logger
// and the statistics engine.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	MessagesLogged prometheus.Counter
	StatRequests   *prometheus.CounterVec
	StatErrors     *prometheus.CounterVec
	StatDuration   *prometheus.HistogramVec
}

// New creates a registry with the application collectors plus the standard
// Go and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		MessagesLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupstats_messages_logged_total",
			Help: "Number of group messages recorded in the message log.",
		}),
		StatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupstats_stat_requests_total",
			Help: "Number of statistic requests, by statistic name.",
		}, []string{"stat"}),
		StatErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupstats_stat_errors_total",
			Help: "Number of failed statistic requests, by statistic name.",
		}, []string{"stat"}),
		StatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "groupstats_stat_duration_seconds",
			Help:    "Statistic computation time, by statistic name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stat"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.MessagesLogged,
		m.StatRequests,
		m.StatErrors,
		m.StatDuration,
	)

	return m
}

// Server is a minimal HTTP server exposing /metrics.
type Server struct {
	srv *http.Server
}

// NewServer builds the metrics listener on addr. Call Start to serve.
func (m *Metrics) NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("metrics server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
