// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/prospector/internal/logging"
	"github.com/go-chi/chi/v5"
)

// Logger logs one line per request with the chi request id attached.
//
// Fields: method, route (the chi pattern), path, status, bytes,
// duration_ms, ip, user_agent and, when the session headers are present,
// user_id.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := wrap(w)

		next.ServeHTTP(ww, r)

		args := []any{
			"method", r.Method,
			"route", routePattern(r),
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		}
		if uid := r.Header.Get(HeaderUserID); uid != "" {
			args = append(args, "user_id", uid)
		}

		log := logging.FromContext(r.Context())
		switch {
		case ww.status >= 500:
			log.Error("request", args...)
		case ww.status >= 400:
			log.Warn("request", args...)
		default:
			log.Info("request", args...)
		}
	})
}

// routePattern returns the matched chi pattern, or "unmatched" for 404s
// that never reached a route.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// responseWriter records the status code and body size.
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

// wrap returns w itself when it is already wrapped so stacked middleware
// share one recorder.
func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, status: http.StatusOK}
}

func (w *responseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
