package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/thvgger/igs-portal/internal/auth"
	"github.com/thvgger/igs-portal/internal/observability"
	"github.com/thvgger/igs-portal/internal/rbac"
	"github.com/thvgger/igs-portal/internal/shared"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type stackFixture struct {
	mr      *miniredis.Miniredis
	handler http.Handler
}

func newStackFixture(t *testing.T) *stackFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         logger,
		Config:         &Config{AppEnv: "test", RateLimitPerMinute: 100, AppRequestTimeout: time.Second},
		SessionManager: shared.NewSessionManager(client, "portal_session", time.Hour, false),
		CSRFManager:    shared.NewCSRFManager("secret"),
		Metrics:        observability.NewMetrics(),
	}) {
		r.Use(mw)
	}
	r.Post("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &stackFixture{mr: mr, handler: r}
}

func (f *stackFixture) post(cookie, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/echo", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "portal_session", Value: cookie})
	}
	if token != "" {
		req.Header.Set(shared.CSRFHeader, token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestCSRFRequiredForSignedInSessions(t *testing.T) {
	f := newStackFixture(t)
	require.NoError(t, f.mr.Set("portal:session:sid-1", `{"values":{"csrf_token":"tok"},"user_id":"5"}`))

	require.Equal(t, http.StatusForbidden, f.post("sid-1", "").Code)
	require.Equal(t, http.StatusForbidden, f.post("sid-1", "forged").Code)

	rec := f.post("sid-1", "tok")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestCSRFSkippedForAnonymousRequests(t *testing.T) {
	f := newStackFixture(t)

	rec := f.post("", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestSessionLoadFailureIsUnavailable(t *testing.T) {
	f := newStackFixture(t)
	f.mr.Close()

	rec := f.post("sid-1", "tok")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouterOpsEndpoints(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(RouterParams{
		Logger:          logger,
		Config:          &Config{AppEnv: "test", RateLimitPerMinute: 100},
		SessionManager:  shared.NewSessionManager(client, "portal_session", time.Hour, false),
		CSRFManager:     shared.NewCSRFManager("secret"),
		AccountsHandler: auth.NewAccountsHandler(logger, auth.NewService(nil), rbac.NewMiddleware(logger)),
		Metrics:         observability.NewMetrics(),
		Readiness: map[string]Pinger{
			"postgres": pingFunc(func(context.Context) error { return nil }),
			"redis":    pingFunc(func(context.Context) error { return errors.New("down") }),
		},
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	require.Equal(t, http.StatusOK, get("/healthz").Code)

	rec := get("/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"postgres":"ok","redis":"unavailable"}`, rec.Body.String())

	rec = get("/nowhere")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = get("/api/accounts/admins")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "portal_http_requests_total")
}
