// Package health runs registered dependency checks concurrently and serves
// liveness and readiness endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

type Check func(ctx context.Context) ComponentHealth

type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Pinger is anything that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports down when p fails, or degraded when the dependency is
// optional for serving queries.
func PingCheck(p Pinger, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := p.Ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes every check in parallel. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for name, check := range checks {
		name, check := name, check
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			result := check(ctx)
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			return report
		case StatusDegraded:
			report.Status = StatusDegraded
		}
	}
	return report
}

func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler answers 503 only when a component is down; a degraded
// optional dependency still serves traffic.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
