package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// responseWriter captures status code and response size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}

// LoggingMiddleware logs each completed request with the id assigned by
// middleware.RequestID.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			logger.InfoContext(r.Context(), "Request completed",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration", time.Since(start),
				"bytes", rw.bytesWritten)
		})
	}
}

// RecoveryMiddleware recovers from panics and renders the JSON error body
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.ErrorContext(r.Context(), "Panic while serving request",
						"request_id", middleware.GetReqID(r.Context()),
						"panic", rec)
					writeError(w, r, http.StatusInternalServerError, "internal_error", "an internal server error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// MetricsCollector records request metrics
type MetricsCollector interface {
	RecordRequest(method, route string, statusCode int, duration time.Duration)
}

// MetricsMiddleware reports every request to collector, labelled by the
// matched chi route pattern.
func MetricsMiddleware(collector MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			collector.RecordRequest(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}

// ServerMiddlewares returns the chain mounted in front of Routes: request ids,
// request logging, request metrics when collector is non-nil, panic recovery
// and a body size cap. Recovery sits inside logging and metrics so recovered
// panics are recorded as 500s.
func ServerMiddlewares(logger *slog.Logger, maxRequestBytes int64, collector MetricsCollector) chi.Middlewares {
	mws := chi.Middlewares{
		middleware.RequestID,
		LoggingMiddleware(logger),
	}
	if collector != nil {
		mws = append(mws, MetricsMiddleware(collector))
	}
	return append(mws,
		RecoveryMiddleware(logger),
		middleware.RequestSize(maxRequestBytes),
	)
}
