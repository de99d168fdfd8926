package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/metrics"
)

// knownRoutes bounds the path label; anything else is reported as "other".
var knownRoutes = []string{
	"/api/v1/search",
	"/api/v1/index/inverted",
	"/api/v1/index/matrix",
	"/api/v1/index/stats",
	"/api/v1/cache/stats",
	"/api/v1/cache/invalidate",
	"/api/v1/analytics/stats",
	"/health/live",
	"/health/ready",
}

// Metrics records request count, latency and in-flight requests.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			path := routeLabel(r.URL.Path)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

func routeLabel(path string) string {
	path = strings.TrimSuffix(path, "/")
	for _, route := range knownRoutes {
		if path == route {
			return route
		}
	}
	return "other"
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.wroteHeader = true
	return sw.ResponseWriter.Write(b)
}
