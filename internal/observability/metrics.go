package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the portal.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	feeBatches      prometheus.Counter
	feeRows         *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
	balanceDrift    prometheus.Gauge
}

// NewMetrics initialises the registry and portal metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request latency per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "portal_fee_batches_total",
		Help: "Fee batches processed.",
	})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_fee_rows_total",
		Help: "Fee rows by outcome.",
	}, []string{"result"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_jobs_total",
		Help: "Background job runs by task and status.",
	}, []string{"task", "status"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_balance_drift_rows",
		Help: "Balance rows whose stored balance differs from owed minus paid at the last scan.",
	})
	registry.MustRegister(requests, duration, batches, rows, jobs, drift)
	// Pre-create label pairs so dashboards see zeros before the first batch.
	rows.WithLabelValues("created")
	rows.WithLabelValues("failed")
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		feeBatches:      batches,
		feeRows:         rows,
		jobsTotal:       jobs,
		balanceDrift:    drift,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveFeeBatch counts the rows of a finished fee batch.
func (m *Metrics) ObserveFeeBatch(created, failed int) {
	if m == nil {
		return
	}
	m.feeBatches.Inc()
	m.feeRows.WithLabelValues("created").Add(float64(created))
	m.feeRows.WithLabelValues("failed").Add(float64(failed))
}

// ObserveJob counts a background job run.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.jobsTotal.WithLabelValues(task, status).Inc()
}

// SetBalanceDrift records the row count of the last integrity scan.
func (m *Metrics) SetBalanceDrift(rows int) {
	if m == nil {
		return
	}
	m.balanceDrift.Set(float64(rows))
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
