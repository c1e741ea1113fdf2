package provider

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

// CircuitBreaker stops calling a backend after maxFailures consecutive
// failures and lets a single probe through once retryAfter has elapsed.
type CircuitBreaker struct {
	maxFailures int
	retryAfter  time.Duration
	failures    int
	lastFailure time.Time
	state       breakerState
	mu          sync.Mutex
	now         func() time.Time
}

func NewCircuitBreaker(maxFailures int, retryAfter time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &CircuitBreaker{maxFailures: maxFailures, retryAfter: retryAfter, now: time.Now}
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.retryAfter {
			cb.state = breakerHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.state = breakerClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == breakerHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = breakerOpen
	}
}

// State returns 0 for closed, 1 for open and 2 for half-open.
func (cb *CircuitBreaker) State() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return int(cb.state)
}
