package fetcher

import (
	"errors"
	"fmt"

	"sitepulse/internal/resilience/retry"
)

// Sentinel errors for request construction and response handling.
var (
	// ErrInvalidURL indicates that the URL is malformed, uses a scheme other
	// than http/https, or is otherwise unusable.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrPrivateIP indicates that the URL resolves to a private address while
	// DenyPrivateIPs is enabled.
	ErrPrivateIP = errors.New("URL resolves to private IP address")

	// ErrTooManyRedirects indicates that the redirect limit was exceeded.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates that the response exceeded MaxBodySize.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrDecode indicates that a 2xx response body could not be decoded.
	ErrDecode = errors.New("failed to decode response")
)

// RateLimitError is returned for 429 responses. RetryAfter carries the
// server's Retry-After hint, which extends the next backoff delay.
type RateLimitError = retry.RateLimitError

// ClientError is returned for 4xx responses other than 429.
// It is not retried, except for 408 Request Timeout.
type ClientError struct {
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("client error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap exposes the status to retry classification.
func (e *ClientError) Unwrap() error {
	return &retry.HTTPError{StatusCode: e.StatusCode, Message: e.Body}
}

// ServerError is returned for 5xx responses and is retried.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap exposes the status to retry classification.
func (e *ServerError) Unwrap() error {
	return &retry.HTTPError{StatusCode: e.StatusCode, Message: e.Body}
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *retry.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return 429
	}
	return 0
}
