// Package delivery sends event batches to the analytics endpoint.
//
// The HTTP sender applies a token bucket before every batch and goes through
// the resilient client, so each batch gets retries and a circuit breaker.
// NoOpSender is used when no endpoint is configured.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sitepulse/internal/domain/entity"
	"sitepulse/internal/infra/fetcher"
	"sitepulse/internal/observability/logging"
	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/resilience/retry"
)

// ErrNoEndpoint is returned when an HTTP sender is created without an endpoint.
var ErrNoEndpoint = errors.New("delivery endpoint is not configured")

// IdempotencyHeader carries the batch ID, which is stable for a re-sent set of
// events. Per-event dedup is on each event id.
const IdempotencyHeader = "Idempotency-Key"

// Config holds the configuration for the HTTP sender.
type Config struct {
	// Endpoint is the URL batches are POSTed to.
	Endpoint string

	// RequestsPerSecond is the sustained batch rate.
	// Default: 2.0
	RequestsPerSecond float64

	// Burst is the number of batches that may be sent back to back.
	// Default: 5
	Burst int

	// Fetch configures retries, the circuit breaker and HTTP limits.
	Fetch fetcher.Config
}

// DefaultConfig returns a sender configuration for endpoint using the
// analytics breaker and the delivery retry policy.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint:          endpoint,
		RequestsPerSecond: 2.0,
		Burst:             5,
		Fetch:             fetcher.DefaultConfig(circuitbreaker.AnalyticsConfig(), retry.DeliveryConfig()),
	}
}

// Validate checks the sender configuration.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests per second must be positive, got %v", c.RequestsPerSecond)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch config: %w", err)
	}
	return nil
}

// HTTPSender POSTs batches as {"events": [...]} to the configured endpoint.
//
// Thread safety: HTTPSender is safe for concurrent use.
type HTTPSender struct {
	endpoint string
	client   *fetcher.Client
	limiter  *RateLimiter
}

// NewHTTPSender creates a sender from cfg.
func NewHTTPSender(cfg Config) (*HTTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &HTTPSender{
		endpoint: cfg.Endpoint,
		client:   fetcher.New(cfg.Fetch),
		limiter:  NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}, nil
}

// Send delivers one batch. Empty batches are not sent.
//
// A nil error means the endpoint answered 2xx. Any error leaves the batch
// with the caller, who decides whether to re-queue it.
func (s *HTTPSender) Send(ctx context.Context, batch entity.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	logger := logging.WithBatchID(logging.FromContext(ctx), batch.ID, batch.Len())

	if err := s.limiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	err := s.client.Do(ctx, fetcher.Request{
		Method: http.MethodPost,
		URL:    s.endpoint,
		Header: http.Header{IdempotencyHeader: []string{batch.ID}},
		Body:   batch,
	}, nil)
	if err != nil {
		logger.Warn("batch delivery failed",
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return fmt.Errorf("deliver batch %s: %w", batch.ID, err)
	}

	logger.Debug("batch delivered",
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Breaker exposes the circuit breaker guarding the endpoint.
func (s *HTTPSender) Breaker() *circuitbreaker.CircuitBreaker {
	return s.client.Breaker()
}
