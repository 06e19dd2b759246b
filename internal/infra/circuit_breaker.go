package infra

import (
	"log/slog"
	"sync"
	"time"
)

// State of the venue breaker.
type State int

const (
	StateClosed   State = iota // orders flow to the venue
	StateOpen                  // venue considered down, submissions shed
	StateHalfOpen              // probing recovery with live orders
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker sits between routed execution and the venue client.
// Consecutive submission failures open it, shedding further order
// submissions instead of hammering a venue that is rejecting or timing
// out. After a cooldown it lets probe orders through; enough probe
// successes close it again. Safe for concurrent use.
type CircuitBreaker struct {
	name string
	mu   sync.Mutex

	state    State
	failures int
	probes   int
	openedAt time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

// CircuitBreakerConfig parameterizes a breaker.
type CircuitBreakerConfig struct {
	Name             string
	FailureThreshold int // consecutive failures that open the breaker
	SuccessThreshold int // probe successes that close it again
	Cooldown         time.Duration
}

// DefaultCircuitBreakerConfig tolerates brief venue hiccups but backs
// off for 30s once submissions fail repeatedly.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		name:             cfg.Name,
		state:            StateClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		cooldown:         cfg.Cooldown,
	}
}

// Allow reports whether an order submission may proceed. While open it
// returns false until the cooldown elapses, then flips to half-open and
// admits probes.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.openedAt) > cb.cooldown {
		cb.state = StateHalfOpen
		cb.probes = 0
		slog.Info("Venue breaker probing recovery", slog.String("name", cb.name))
	}
	return cb.state != StateOpen
}

// RecordSuccess notes a submission the venue accepted.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probes++
		if cb.probes >= cb.successThreshold {
			cb.toClosed()
			slog.Info("Venue breaker closed, order flow restored",
				slog.String("name", cb.name))
		}
	}
}

// RecordFailure notes a failed submission. A single failure during
// half-open reopens the breaker for a full cooldown.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.toOpen()
			slog.Warn("Venue breaker open, shedding order submissions",
				slog.String("name", cb.name),
				slog.Int("consecutive_failures", cb.failures))
		}
	case StateHalfOpen:
		cb.toOpen()
		slog.Warn("Venue breaker reopened, probe submission failed",
			slog.String("name", cb.name))
	}
}

// GetState returns the current state (for monitoring).
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed regardless of history.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toClosed()
	slog.Info("Venue breaker reset", slog.String("name", cb.name))
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.probes = 0
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
}
