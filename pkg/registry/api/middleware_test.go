package api

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeCollector struct {
	requests []recordedRequest
}

func (f *fakeCollector) RecordRequest(method, route string, statusCode int, _ time.Duration) {
	f.requests = append(f.requests, recordedRequest{method: method, route: route, status: statusCode})
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.RequestID(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/contents/1", nil)
	req.Header.Set("X-Request-ID", "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"status":418`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"path":"/contents/1"`)
	assert.Contains(t, out, `"bytes":2`)
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal_error"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	collector := &fakeCollector{}
	r := chi.NewRouter()
	r.Use(MetricsMiddleware(collector))
	r.Get("/contents/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contents/42", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, collector.requests, 2)
	assert.Equal(t, recordedRequest{method: http.MethodGet, route: "/contents/{id}", status: http.StatusNoContent}, collector.requests[0])
	assert.Equal(t, http.StatusNotFound, collector.requests[1].status)
}

func TestServerMiddlewares(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	collector := &fakeCollector{}

	r := chi.NewRouter()
	r.Use(ServerMiddlewares(logger, 8, collector)...)
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-Id", "req-9")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"internal_error"`)
	assert.Contains(t, buf.String(), `"request_id":"req-9"`)
	require.Len(t, collector.requests, 1)
	assert.Equal(t, "/boom", collector.requests[0].route)
	assert.Equal(t, http.StatusInternalServerError, collector.requests[0].status)

	assert.Len(t, ServerMiddlewares(logger, 8, nil), 4)
}
