// Package circuitbreaker provides circuit breakers for calls to external dependencies.
// It uses the github.com/sony/gobreaker library to stop hammering a dependency that is down.
package circuitbreaker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned, wrapped, when a call is rejected without being attempted
// because the circuit is open (or its single half-open trial is already in flight).
var ErrOpen = errors.New("circuit breaker is open")

// Config holds the configuration for a circuit breaker.
type Config struct {
	// Name is the circuit breaker name for logging and metrics
	Name string

	// FailureThreshold is the number of consecutive failures that trips the circuit
	FailureThreshold uint32

	// RecoveryTimeout is how long to stay open before allowing a trial call
	RecoveryTimeout time.Duration

	// Interval is the cyclic period of the closed state to clear counts.
	// Zero keeps counts until the next success.
	Interval time.Duration

	// IsSuccessful classifies errors that should not count as failures.
	// Nil counts every non-nil error as a failure.
	IsSuccessful func(err error) bool
}

// DefaultConfig returns a default configuration for circuit breakers.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// AnalyticsConfig returns configuration for the analytics delivery endpoint.
func AnalyticsConfig() Config {
	return Config{
		Name:             "analytics",
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
	}
}

// LiveMetricsConfig returns configuration for the live metrics source.
// It trips early because callers always have fallback data.
func LiveMetricsConfig() Config {
	return Config{
		Name:             "live-metrics",
		FailureThreshold: 3,
		RecoveryTimeout:  60 * time.Second,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker with additional functionality.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a new circuit breaker with the given configuration.
//
// The breaker admits exactly one trial call while half-open; that trial
// closes the circuit on success and reopens it (restarting the recovery
// timer) on failure.
func New(cfg Config) *CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			recordStateChange(name, to)
		},
		IsSuccessful: cfg.IsSuccessful,
	}

	recordState(cfg.Name, gobreaker.StateClosed)

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs the given function through the circuit breaker.
// If the circuit is open, it returns an error wrapping ErrOpen immediately
// without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		recordRejected(cb.name)
		return nil, fmt.Errorf("%w: %s", ErrOpen, cb.name)
	}
	return result, err
}

// Call runs fn through cb and returns its typed result.
func Call[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	v, _ := result.(T)
	return v, err
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

// Name returns the name of the circuit breaker.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen returns true if the circuit breaker is in the open state.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}

// ConsecutiveFailures returns the failures counted since the last success.
func (cb *CircuitBreaker) ConsecutiveFailures() uint32 {
	return cb.breaker.Counts().ConsecutiveFailures
}

// IsOpenError reports whether err was produced by a rejected call.
func IsOpenError(err error) bool {
	return errors.Is(err, ErrOpen)
}
