package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed means calls flow normally.
	StateClosed CircuitState = iota
	// StateHalfOpen means one probe call is allowed through.
	StateHalfOpen
	// StateOpen means calls are rejected until the cool-down passes.
	StateOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned while the breaker is open.
	ErrCircuitOpen = errors.NewStd("circuit breaker is open")
	// ErrProbeInFlight is returned when a half-open breaker already let a probe through.
	ErrProbeInFlight = errors.NewStd("circuit breaker is half-open, probe in flight")
)

// CircuitBreakerConfig holds configuration for a circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the circuit.
	MaxFailures int
	// Cooldown is how long to wait before transitioning from Open to Half-Open.
	Cooldown time.Duration
}

// DefaultCircuitBreakerConfig returns the default breaker settings.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 3,
		Cooldown:    time.Minute,
	}
}

// CircuitBreaker short-circuits calls to a sink after consecutive failures,
// so a dead endpoint costs nothing until the cool-down has passed.
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	sink            string
	state           CircuitState
	failures        int
	lastStateChange time.Time
	probing         bool
	now             func() time.Time
	metrics         *metrics.NotificationMetrics
	mu              sync.Mutex
}

// NewCircuitBreaker creates a closed breaker for sink. m may be nil.
func NewCircuitBreaker(config CircuitBreakerConfig, sink string, m *metrics.NotificationMetrics) *CircuitBreaker {
	if config.MaxFailures < 1 {
		config.MaxFailures = 1
	}
	cb := &CircuitBreaker{
		config:          config,
		sink:            sink,
		state:           StateClosed,
		now:             time.Now,
		lastStateChange: time.Now(),
		metrics:         m,
	}
	if m != nil {
		m.UpdateCircuitBreakerState(sink, int(StateClosed))
	}
	return cb
}

// Call runs fn if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return fmt.Errorf("%s sink rejected (%d consecutive failures): %w", cb.sink, cb.Failures(), err)
	}
	err := fn(ctx)
	cb.afterCall(err)
	return err
}

func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.lastStateChange) >= cb.config.Cooldown {
			cb.setState(StateHalfOpen)
			cb.probing = true
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			return ErrProbeInFlight
		}
		cb.probing = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false

	if err == nil {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.setState(StateClosed)
		}
		return
	}

	// Shutdown cancellation says nothing about the sink.
	if errors.Is(err, context.Canceled) {
		return
	}

	cb.failures++
	if cb.metrics != nil {
		cb.metrics.IncrementConsecutiveFailures(cb.sink)
	}
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
	case StateOpen:
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(newState CircuitState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.now()

	if cb.metrics != nil {
		cb.metrics.UpdateCircuitBreakerState(cb.sink, int(newState))
	}
	getLogger().Info("circuit breaker state transition",
		logger.String("sink", cb.sink),
		logger.String("old_state", oldState.String()),
		logger.String("new_state", newState.String()),
		logger.Int("consecutive_failures", cb.failures))
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
