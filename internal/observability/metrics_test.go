package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	body := scrape(t, NewMetrics())
	require.Contains(t, body, `portal_fee_rows_total{result="created"} 0`)
	require.Contains(t, body, "portal_balance_drift_rows 0")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/ledger/students/{id}/balance")

	req := httptest.NewRequest(http.MethodGet, "/api/ledger/students/4/balance", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `portal_http_requests_total{code="418",route="/api/ledger/students/{id}/balance"} 1`)
	require.Contains(t, body, `portal_http_request_duration_seconds_bucket{route="/api/ledger/students/{id}/balance"`)
}

func TestMetricsLedgerCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveFeeBatch(3, 1)
	metrics.ObserveFeeBatch(2, 0)
	metrics.ObserveJob("ledger:fee_batch", nil)
	metrics.ObserveJob("ledger:balance_integrity", errors.New("boom"))
	metrics.SetBalanceDrift(4)

	body := scrape(t, metrics)
	for _, want := range []string{
		"portal_fee_batches_total 2",
		`portal_fee_rows_total{result="created"} 5`,
		`portal_fee_rows_total{result="failed"} 1`,
		`portal_jobs_total{status="ok",task="ledger:fee_batch"} 1`,
		`portal_jobs_total{status="error",task="ledger:balance_integrity"} 1`,
		"portal_balance_drift_rows 4",
	} {
		require.True(t, strings.Contains(body, want), "missing %q", want)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveFeeBatch(1, 1)
	m.ObserveJob("x", nil)
	m.SetBalanceDrift(1)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
