// Package metrics provides the Prometheus instruments for refreshes, views,
// the Gamma fetcher and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument on a private registry. All methods are safe
// on a nil *Metrics so collaborators can run without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	TableRows       prometheus.Gauge
	LastRefresh     prometheus.Gauge

	ViewRows *prometheus.HistogramVec

	FetchPages  prometheus.Counter
	FetchErrors *prometheus.CounterVec

	HTTPDuration *prometheus.HistogramVec
}

// New creates a Metrics instance under namespace (default "polyscreen").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "polyscreen"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "refresh_total",
			Help:      "Table refreshes by result",
		}, []string{"result"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "refresh_duration_seconds",
			Help:      "Wall time of a table refresh",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		TableRows: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "rows",
			Help:      "Markets in the current table",
		}),
		LastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "table",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful table build",
		}),
		ViewRows: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "rows",
			Help:      "Rows returned per view computation",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"view"}),
		FetchPages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gamma",
			Name:      "pages_total",
			Help:      "Event pages fetched from the Gamma API",
		}),
		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gamma",
			Name:      "errors_total",
			Help:      "Gamma page failures by kind",
		}, []string{"kind"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRefresh records one refresh attempt.
func (m *Metrics) ObserveRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(d.Seconds())
}

// SetTable records the size and build time of a newly swapped table.
func (m *Metrics) SetTable(rows int, at time.Time) {
	if m == nil {
		return
	}
	m.TableRows.Set(float64(rows))
	m.LastRefresh.Set(float64(at.Unix()))
}

// ObserveView records how many rows a view produced.
func (m *Metrics) ObserveView(view string, rows int) {
	if m == nil {
		return
	}
	m.ViewRows.WithLabelValues(view).Observe(float64(rows))
}

// IncFetchPages counts one fetched Gamma page.
func (m *Metrics) IncFetchPages() {
	if m == nil {
		return
	}
	m.FetchPages.Inc()
}

// IncFetchError counts one failed Gamma page by kind.
func (m *Metrics) IncFetchError(kind string) {
	if m == nil {
		return
	}
	m.FetchErrors.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}
