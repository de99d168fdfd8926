package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type BreakerConfig struct {
	FailureThreshold int
	CoolDown         time.Duration
	HalfOpenProbes   int
}

// Breaker stops calling a failing backend after FailureThreshold
// consecutive errors. Once CoolDown has elapsed it lets HalfOpenProbes calls
// through; a successful probe closes it again and a failed one re-opens it.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	state      State
	failures   int
	openedAt   time.Time
	probesSent int
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
		now:    time.Now,
	}
}

// Execute runs fn unless the breaker is open and records its outcome.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		wait := b.cfg.CoolDown - b.now().Sub(b.openedAt)
		if wait > 0 {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, b.name, wait)
		}
		b.state = StateHalfOpen
		b.probesSent = 0
		b.logger.Info("circuit half-open, probing backend")
		fallthrough
	case StateHalfOpen:
		if b.probesSent >= b.cfg.HalfOpenProbes {
			return fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, b.name)
		}
		b.probesSent++
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state == StateHalfOpen {
			b.logger.Info("circuit closed, backend recovered")
		}
		b.state = StateClosed
		b.failures = 0
		return
	}
	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.trip()
	case b.state == StateClosed && b.failures >= b.cfg.FailureThreshold:
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.logger.Warn("circuit opened",
		"consecutive_failures", b.failures,
		"threshold", b.cfg.FailureThreshold,
	)
}
