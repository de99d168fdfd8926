package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irsearch/pkg/logger"
)

// Timeout cancels the request context after timeout and answers 504 if
// the handler has not started writing by then. A write made after the
// deadline always loses to the 504 and is discarded.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w, ctx: ctx, header: make(http.Header)}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				if ctx.Err() == nil {
					return
				}
			case <-ctx.Done():
			}

			tw.mu.Lock()
			defer tw.mu.Unlock()
			if tw.written {
				return
			}
			tw.timedOut = true
			logger.FromContext(r.Context()).Warn("request timed out",
				"method", r.Method,
				"path", r.URL.Path,
				"timeout", timeout,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusGatewayTimeout)
			w.Write([]byte(`{"error":"request timeout"}`))
		})
	}
}

// timeoutWriter buffers headers privately until the first write so the
// handler goroutine never touches the real header map after a timeout.
type timeoutWriter struct {
	http.ResponseWriter
	ctx      context.Context
	header   http.Header
	mu       sync.Mutex
	written  bool
	timedOut bool
}

func (tw *timeoutWriter) Header() http.Header { return tw.header }

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.written || tw.expired() {
		return
	}
	tw.commit()
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if !tw.written {
		if tw.expired() {
			return 0, http.ErrHandlerTimeout
		}
		tw.commit()
	}
	return tw.ResponseWriter.Write(b)
}

// expired reports whether the response now belongs to the timeout path.
// Callers hold tw.mu.
func (tw *timeoutWriter) expired() bool {
	if tw.ctx.Err() != nil {
		tw.timedOut = true
	}
	return tw.timedOut
}

func (tw *timeoutWriter) commit() {
	tw.written = true
	dst := tw.ResponseWriter.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
}
