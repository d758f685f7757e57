package fetcher

import (
	"context"
	"errors"
	"log/slog"

	"sitepulse/internal/observability/metrics"
	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/resilience/retry"
)

// Result is the outcome of FetchWithFallback.
type Result[T any] struct {
	// Data is the decoded response, or the fallback when FromCache is true.
	Data T

	// FromCache is true when Data is the caller-supplied fallback.
	FromCache bool

	// Err is the cause of the fallback, nil on success.
	Err error
}

// FetchWithFallback performs req through c and never fails: any error,
// including an open circuit or exhausted retries, yields the fallback value
// with FromCache set.
//
// Example:
//
//	res := fetcher.FetchWithFallback(ctx, client, fetcher.Request{URL: url}, lastKnown)
//	if res.FromCache {
//	    // stale but usable
//	}
func FetchWithFallback[T any](ctx context.Context, c *Client, req Request, fallback T) Result[T] {
	var data T
	err := c.Do(ctx, req, &data)
	if err == nil {
		return Result[T]{Data: data}
	}

	reason := fallbackReason(err)
	metrics.RecordFetchFallback(c.Name(), reason)
	slog.Warn("using fallback data",
		slog.String("dependency", c.Name()),
		slog.String("reason", reason),
		slog.Any("error", err))

	return Result[T]{Data: fallback, FromCache: true, Err: err}
}

func fallbackReason(err error) string {
	switch {
	case circuitbreaker.IsOpenError(err):
		return "circuit_open"
	case errors.Is(err, retry.ErrMaxAttemptsExceeded):
		return "exhausted"
	default:
		return "error"
	}
}
