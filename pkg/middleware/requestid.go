// Package middleware holds the HTTP middleware chain of the search
// service: request IDs, CORS, Prometheus metrics, per-client rate limiting
// and request timeouts.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID propagates the caller's X-Request-ID or assigns a new UUID,
// echoes it on the response and stores it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// Chain applies middlewares so the first one listed runs outermost.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
