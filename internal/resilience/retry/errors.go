package retry

import (
	"errors"
	"fmt"
	"time"
)

// ErrMaxAttemptsExceeded is wrapped, together with the last attempt's error,
// when every attempt failed with a retryable error.
var ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsClientError reports whether the status is in the 4xx range.
func (e *HTTPError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// IsServerError reports whether the status is in the 5xx range.
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// RateLimitError represents a 429 response. RetryAfter, when set, overrides
// the computed backoff if it is longer.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// TimeoutError reports an attempt that exceeded its own time budget.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %v: %v", e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}
