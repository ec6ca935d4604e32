package breaker

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents the current state of a circuit breaker.
type State int

const (
	// StateClosed is the normal operating state - requests are allowed
	StateClosed State = iota
	// StateOpen means too many failures occurred - requests are blocked
	StateOpen
	// StateHalfOpen admits a bounded number of probe requests
	StateHalfOpen
)

// String returns the snake_case name used in logs and API snapshots.
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

// ErrCircuitOpen is returned when a breaker refuses a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// OpenError wraps ErrCircuitOpen with the breaker name.
type OpenError struct {
	Name string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %q", e.Name)
}

func (e *OpenError) Unwrap() error {
	return ErrCircuitOpen
}

// IsOpen reports whether err means a breaker refused the call.
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// Config configures the breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures before opening
	FailureThreshold int
	// SuccessThreshold is the number of successes in half-open before closing
	SuccessThreshold int
	// Timeout is how long the breaker stays open before probing
	Timeout time.Duration
	// HalfOpenMaxCalls bounds the number of probe calls admitted in half-open
	HalfOpenMaxCalls int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// Snapshot is a read-only view of breaker state for the status API.
type Snapshot struct {
	Name            string     `json:"name"`
	State           string     `json:"state"`
	FailureCount    int        `json:"failure_count"`
	SuccessCount    int        `json:"success_count"`
	HalfOpenCalls   int        `json:"half_open_calls"`
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
}

// Breaker is a three-state failure gate in front of one remote target.
// All transitions and counter mutations happen under a single lock.
type Breaker struct {
	name   string
	config Config

	mu            sync.Mutex
	state         State
	failureCount  int
	successCount  int
	halfOpenCalls int
	lastFailure   time.Time

	// injectable clock for tests
	now func() time.Time
}

// New creates a breaker with the given name and config. Zero-valued config
// fields fall back to defaults.
func New(name string, config Config) *Breaker {
	def := DefaultConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return &Breaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Name returns the breaker's name (usually a provider slug).
func (b *Breaker) Name() string {
	return b.name
}

// CanExecute reports whether a call may proceed. In half-open it admits up
// to HalfOpenMaxCalls probes, counting each admission.
func (b *Breaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeTransitionLocked()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if b.halfOpenCalls < b.config.HalfOpenMaxCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	}
	return false
}

// RecordSuccess records a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successCount++

	switch b.state {
	case StateHalfOpen:
		if b.successCount >= b.config.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}
	case StateClosed:
		b.failureCount = 0
	}
}

// RecordFailure records a failed call, opening the circuit when the failure
// threshold is reached. A single failure in half-open reopens the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailure = b.now()

	switch b.state {
	case StateHalfOpen:
		b.transitionLocked(StateOpen)
	case StateClosed:
		if b.failureCount >= b.config.FailureThreshold {
			b.transitionLocked(StateOpen)
		}
	}
}

// State returns the current state, applying the open→half-open timeout
// transition if it is due.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionLocked()
	return b.state
}

// Reset forces the breaker back to closed with fresh counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.halfOpenCalls = 0
	b.lastFailure = time.Time{}
}

// Snapshot returns a point-in-time view of the breaker.
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionLocked()

	snap := Snapshot{
		Name:          b.name,
		State:         b.state.String(),
		FailureCount:  b.failureCount,
		SuccessCount:  b.successCount,
		HalfOpenCalls: b.halfOpenCalls,
	}
	if !b.lastFailure.IsZero() {
		t := b.lastFailure
		snap.LastFailureTime = &t
	}
	return snap
}

// maybeTransitionLocked applies the time-based open→half-open transition.
// Caller must hold the lock.
func (b *Breaker) maybeTransitionLocked() {
	if b.state == StateOpen && !b.lastFailure.IsZero() {
		if b.now().Sub(b.lastFailure) >= b.config.Timeout {
			b.transitionLocked(StateHalfOpen)
		}
	}
}

// transitionLocked moves to a new state and resets counters as required.
// Caller must hold the lock.
func (b *Breaker) transitionLocked(next State) {
	prev := b.state
	b.state = next

	switch next {
	case StateClosed:
		b.failureCount = 0
		b.successCount = 0
		b.halfOpenCalls = 0
		b.lastFailure = time.Time{}
	case StateHalfOpen:
		b.successCount = 0
		b.halfOpenCalls = 0
	}

	slog.Info("circuit breaker state change",
		slog.String("breaker", b.name),
		slog.String("from", prev.String()),
		slog.String("to", next.String()))
}
