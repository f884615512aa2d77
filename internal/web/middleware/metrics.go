package middleware

import (
	"net/http"
	"time"

	"github.com/JonMunkholm/prospector/internal/metrics"
)

// Metrics records request count, latency and in-flight requests, labelled
// by chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.RequestStarted()
		defer metrics.RequestFinished()

		ww := wrap(w)
		next.ServeHTTP(ww, r)

		metrics.RecordRequest(r.Method, routePattern(r), ww.status, time.Since(start))
	})
}
