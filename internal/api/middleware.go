package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gatehouse/gatehouse/internal/observability"
)

// sessionHeader carries the caller's session token. The API never parses or
// verifies tokens itself; the service layer resolves them against the store.
const sessionHeader = "X-Session-Token"

// sessionToken extracts the caller's token from the request.
func sessionToken(r *http.Request) string {
	return r.Header.Get(sessionHeader)
}

// RequestLogger logs the completion of each request with structured fields.
// Info for success, Warn for 4xx, Error for 5xx.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := middleware.GetReqID(r.Context())

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			status := ww.Status()
			if status >= 500 {
				level = slog.LevelError
			} else if status >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "HTTP request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", reqID),
				slog.String("remote_ip", r.RemoteAddr),
			)
		})
	}
}

// Metrics records per-request latency and status counters. The label is the
// chi route pattern ("/api/v1/flags/{name}"), never the raw path, so metric
// cardinality stays bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}

		observability.HTTPReqDuration.
			WithLabelValues(r.Method, pattern).
			Observe(time.Since(start).Seconds())
		observability.HTTPReqTotal.
			WithLabelValues(r.Method, pattern, strconv.Itoa(ww.Status())).
			Inc()
	})
}
