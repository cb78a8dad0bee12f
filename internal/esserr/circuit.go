package esserr

import (
	"sync"
	"time"
)

// CircuitOpenError is returned when the circuit breaker is open. It
// satisfies the CircuitOpenError contract from the spec via the
// OpenedAt/ResetAt accessors below.
type CircuitOpenError struct {
	Service  string
	OpenedAt time.Time
	ResetAt  time.Time
}

func (e *CircuitOpenError) Error() string {
	return "circuit open for " + e.Service
}

// State is one of the three circuit breaker states.
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
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements closed -> open -> half_open -> closed with
// the defaults from the spec: 5 consecutive failures trips it, 30s
// reset timeout, 3 consecutive successes in half-open closes it again,
// and a single failure in half-open reopens it.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	successThreshold int

	mu              sync.Mutex
	state           State
	failures        int
	halfOpenSuccess int
	openedAt        time.Time
	lastFailure     time.Time
}

// CircuitBreakerOption configures a CircuitBreaker.
type CircuitBreakerOption func(*CircuitBreaker)

func WithFailureThreshold(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.failureThreshold = n }
}

func WithResetTimeout(d time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.resetTimeout = d }
}

func WithSuccessThreshold(n int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) { cb.successThreshold = n }
}

// NewCircuitBreaker builds a circuit breaker with the spec defaults
// (5 failures / 30s reset / 3 half-open successes), overridable by opts.
func NewCircuitBreaker(name string, opts ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		successThreshold: 3,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state, resolving a stale Open into
// HalfOpen once the reset timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentLocked()
}

func (cb *CircuitBreaker) currentLocked() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) > cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Allow reports whether a call should proceed, and if not, returns the
// typed CircuitOpenError carrying OpenedAt/ResetAt for the caller to
// surface to the client.
func (cb *CircuitBreaker) Allow() (bool, *CircuitOpenError) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.currentLocked() {
	case StateOpen:
		return false, &CircuitOpenError{
			Service:  cb.name,
			OpenedAt: cb.openedAt,
			ResetAt:  cb.openedAt.Add(cb.resetTimeout),
		}
	default:
		return true, nil
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentLocked() {
	case StateHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.halfOpenSuccess = 0
		}
	default:
		cb.failures = 0
		cb.state = StateClosed
	}
}

// RecordFailure records a failed call. A single failure while
// half-open reopens the circuit immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = time.Now()

	if cb.currentLocked() == StateHalfOpen {
		cb.trip()
		return
	}

	cb.failures++
	if cb.failures >= cb.failureThreshold {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.halfOpenSuccess = 0
}

// Snapshot is a point-in-time view of a circuit breaker's health,
// consumed by the /health endpoint.
type Snapshot struct {
	Service     string
	State       State
	LatencyMs   int64
	LastFailure time.Time
}

// Registry owns one CircuitBreaker per external service (graph, vector,
// embedder, optional synthesis) and exposes the health snapshot the
// spec's /health endpoint needs.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	latency  map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		latency:  make(map[string]int64),
	}
}

// Get returns the circuit breaker for service, creating it with
// defaults on first use.
func (r *Registry) Get(service string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[service]
	if !ok {
		cb = NewCircuitBreaker(service)
		r.breakers[service] = cb
	}
	return cb
}

// RecordLatency stores the most recent observed latency for a service,
// surfaced in health snapshots.
func (r *Registry) RecordLatency(service string, ms int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency[service] = ms
}

// Snapshot returns a health view keyed by service name.
func (r *Registry) Snapshot() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Snapshot, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = Snapshot{
			Service:     name,
			State:       cb.State(),
			LatencyMs:   r.latency[name],
			LastFailure: cb.lastFailure,
		}
	}
	return out
}
