package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per client address.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter allows rps sustained requests per client with bursts of
// burst. Buckets unused for idle are forgotten.
func NewRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &RateLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	c, ok := l.clients[client]
	if !ok {
		l.evictIdle(now)
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *RateLimiter) evictIdle(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idle {
			delete(l.clients, key)
		}
	}
}

// RateLimit rejects clients over their budget with 429. Health probes are
// never limited.
func RateLimit(l *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || l.Allow(clientAddr(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded"}`))
		})
	}
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
