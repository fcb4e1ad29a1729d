// Package metrics exposes Prometheus instrumentation for crawl and index runs.
//
// All methods are nil-safe so that callers can pass a nil *Metrics when
// instrumentation is disabled.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "wikindex"

// Metrics holds the collectors for one process.
//
// Design decision: A dedicated registry is used instead of the global
// default registry so that tests can create independent instances without
// duplicate registration panics.
type Metrics struct {
	registry *prometheus.Registry

	pagesClaimed    prometheus.Counter
	documentsStored prometheus.Counter
	failures        *prometheus.CounterVec
	indexEntries    prometheus.Counter
	frontierSize    prometheus.Gauge
	fetchDuration   prometheus.Histogram
}

// New creates a Metrics instance with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pagesClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_claimed_total",
			Help:      "URLs claimed by crawl workers.",
		}),
		documentsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_stored_total",
			Help:      "Documents written to the corpus store.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Swallowed failures by category.",
		}, []string{"category"}),
		indexEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_entries_total",
			Help:      "Index entries produced by the indexer.",
		}),
		frontierSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_size",
			Help:      "URLs waiting in the frontier.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Page fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.pagesClaimed,
		m.documentsStored,
		m.failures,
		m.indexEntries,
		m.frontierSize,
		m.fetchDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// PageClaimed records one claimed URL.
func (m *Metrics) PageClaimed() {
	if m == nil {
		return
	}
	m.pagesClaimed.Inc()
}

// DocumentStored records one stored document.
func (m *Metrics) DocumentStored() {
	if m == nil {
		return
	}
	m.documentsStored.Inc()
}

// Failure records one failure of the given category.
func (m *Metrics) Failure(category string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(category).Inc()
}

// IndexEntries records n produced index entries.
func (m *Metrics) IndexEntries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.indexEntries.Add(float64(n))
}

// SetFrontierSize records the current frontier length.
func (m *Metrics) SetFrontierSize(n int) {
	if m == nil {
		return
	}
	m.frontierSize.Set(float64(n))
}

// ObserveFetch records the duration of one fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:contextcheck // parent is already canceled
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
