package transport

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	RecoveryTimeout  time.Duration
	// HalfOpenMaxRequests bounds the trial round trips in flight while
	// half-open; that many successes close the breaker again
	HalfOpenMaxRequests int
}

// CircuitBreaker stops sending operations to an endpoint after consecutive
// transport failures and tries it again after RecoveryTimeout
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu         sync.Mutex
	state      breakerState
	generation uint64
	failures   int
	trials     int
	successes  int
	openedAt   time.Time
}

// NewCircuitBreaker creates a new CircuitBreaker
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 2
	}
	return &CircuitBreaker{
		cfg: cfg,
		now: time.Now,
	}
}

func noopDone(bool) {}

// Allow admits one round trip or returns ErrCircuitOpen. The caller reports
// the outcome through done exactly once; remote errors count as success.
func (cb *CircuitBreaker) Allow() (done func(success bool), err error) {
	if !cb.cfg.Enabled {
		return noopDone, nil
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advanceLocked()
	switch cb.state {
	case breakerOpen:
		return nil, ErrCircuitOpen
	case breakerHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxRequests {
			return nil, ErrCircuitOpen
		}
		cb.trials++
	}

	generation := cb.generation
	return func(success bool) { cb.report(generation, success) }, nil
}

// report applies an outcome unless the breaker changed state since the
// round trip was admitted
func (cb *CircuitBreaker) report(generation uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if generation != cb.generation {
		return
	}

	switch cb.state {
	case breakerClosed:
		if success {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.setStateLocked(breakerOpen)
		}
	case breakerHalfOpen:
		cb.trials--
		if !success {
			cb.setStateLocked(breakerOpen)
			return
		}
		cb.successes++
		if cb.successes >= cb.cfg.HalfOpenMaxRequests {
			cb.setStateLocked(breakerClosed)
		}
	}
}

func (cb *CircuitBreaker) advanceLocked() {
	if cb.state == breakerOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.RecoveryTimeout {
		cb.setStateLocked(breakerHalfOpen)
	}
}

func (cb *CircuitBreaker) setStateLocked(state breakerState) {
	cb.state = state
	cb.generation++
	cb.failures, cb.trials, cb.successes = 0, 0, 0
	if state == breakerOpen {
		cb.openedAt = cb.now()
	}
}

// State returns the current state name
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.advanceLocked()
	return cb.state.String()
}
