package middleware

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/tracing"
)

// Trace opens a root span per request, keyed by the request ID, and logs
// the finished span tree at debug level. It must run inside RequestID.
func Trace(next http.Handler) http.Handler {
	log := logger.WithComponent("tracing")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.Start(r.Context(), r.Method+" "+r.URL.Path, logger.RequestID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
		span.End()
		span.Log(log)
	})
}
