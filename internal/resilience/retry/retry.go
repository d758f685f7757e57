// Package retry provides retry logic with exponential backoff and jitter.
// It helps handle transient failures gracefully by automatically retrying failed operations.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxAttempts is the maximum number of attempts, including the first one
	MaxAttempts int

	// InitialDelay is the delay before the first retry
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries (0 means no cap)
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff
	Multiplier float64

	// JitterFraction is the fraction of delay to add as random jitter (0.0 to 1.0)
	JitterFraction float64

	// AttemptTimeout bounds a single attempt (0 means only the parent context applies)
	AttemptTimeout time.Duration

	// ShouldRetry decides whether a failure is worth another attempt.
	// Defaults to IsRetryable.
	ShouldRetry func(err error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error)

	// OnSuccess is called once when an attempt succeeds.
	OnSuccess func(attempt int)

	// OnFailure is called once when the operation gives up.
	OnFailure func(attempts int, err error)
}

// DefaultConfig returns a default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0,
		AttemptTimeout: 10 * time.Second,
	}
}

// DeliveryConfig returns configuration for analytics batch delivery.
// Batches are re-queued on failure, so a short budget is enough.
func DeliveryConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		AttemptTimeout: 10 * time.Second,
	}
}

// MetricsSourceConfig returns configuration for polling the live metrics source.
// Callers fall back to cached data, so retries stay cheap.
func MetricsSourceConfig() Config {
	return Config{
		MaxAttempts:    2,
		InitialDelay:   1 * time.Second,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		AttemptTimeout: 5 * time.Second,
	}
}

// WithBackoff executes the given function with retry logic and exponential backoff.
// It returns nil if the function succeeds, or the last error if all attempts fail.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	_, err := Do(ctx, cfg, func(context.Context) (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Do executes op with retry logic and returns the value of the first successful attempt.
//
// Each attempt receives a context bounded by cfg.AttemptTimeout. An attempt that
// runs out of its own time budget is reported as a *TimeoutError, which is retryable;
// cancellation of the parent context aborts the loop.
//
// A non-retryable error is returned unchanged after the attempt that produced it.
// When all attempts fail, the last error is returned wrapped.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := runAttempt(ctx, cfg.AttemptTimeout, op)

		// Success - return immediately
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			if cfg.OnSuccess != nil {
				cfg.OnSuccess(attempt)
			}
			return result, nil
		}
		lastErr = err

		// Parent context gone: nothing left to retry for
		if ctx.Err() != nil {
			notifyFailure(cfg, attempt, err)
			return zero, fmt.Errorf("retry aborted: %w", errors.Join(ctx.Err(), err))
		}

		if !shouldRetry(err) {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			notifyFailure(cfg, attempt, err)
			return zero, err
		}

		// Don't wait after last attempt
		if attempt == cfg.MaxAttempts {
			break
		}

		delay := Backoff(cfg, attempt)
		var rlErr *RateLimitError
		if errors.As(err, &rlErr) && rlErr.RetryAfter > delay {
			delay = rlErr.RetryAfter
			// Server-supplied waits are still bounded by MaxDelay
			if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			notifyFailure(cfg, attempt, lastErr)
			return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}

	notifyFailure(cfg, cfg.MaxAttempts, lastErr)
	return zero, fmt.Errorf("%w (%d): %w", ErrMaxAttemptsExceeded, cfg.MaxAttempts, lastErr)
}

// runAttempt runs a single attempt under its own timeout and converts an
// attempt-level deadline into a TimeoutError.
func runAttempt[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := op(attemptCtx)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return result, &TimeoutError{Timeout: timeout, Err: err}
	}
	return result, err
}

func notifyFailure(cfg Config, attempts int, err error) {
	if cfg.OnFailure != nil {
		cfg.OnFailure(attempts, err)
	}
}

// Backoff returns the wait after the given (1-based) failed attempt:
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay, plus jitter.
func Backoff(cfg Config, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}

	delay := float64(cfg.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	return addJitter(time.Duration(delay), cfg.JitterFraction)
}

// IsRetryable determines if an error is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Attempt-level timeouts are retryable
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return true
	}

	// Caller cancellation is not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	// HTTP status codes
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return isRetryableStatus(httpErr.StatusCode)
	}

	// Network errors (timeout)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection-level failures
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}

	// Syscall errors
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	// Server closed the connection mid-response
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	return false
}

func isRetryableStatus(code int) bool {
	// 5xx server errors are retryable
	if code >= 500 && code < 600 {
		return true
	}
	// 429 Too Many Requests and 408 Request Timeout are retryable
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// addJitter adds random jitter to a duration to prevent thundering herd.
func addJitter(duration time.Duration, jitterFraction float64) time.Duration {
	if jitterFraction <= 0 {
		return duration
	}
	if jitterFraction > 1.0 {
		jitterFraction = 1.0
	}
	// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
	// Cryptographic randomness is not required for retry backoff jitter.
	jitter := time.Duration(rand.Float64() * float64(duration) * jitterFraction)
	return duration + jitter
}
