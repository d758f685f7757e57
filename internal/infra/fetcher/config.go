package fetcher

import (
	"fmt"
	"time"

	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/resilience/retry"
)

// Config holds the configuration for a resilient client.
// One client talks to one logical dependency, so the breaker and the retry
// policy are part of the client configuration.
type Config struct {
	// Retry controls how many times and how quickly a failed call is retried.
	Retry retry.Config

	// Breaker configures the circuit breaker that guards every attempt.
	// Breaker.Name doubles as the dependency label in logs and metrics.
	Breaker circuitbreaker.Config

	// Timeout is the overall limit of the underlying http.Client.
	// Individual attempts are bounded by Retry.AttemptTimeout.
	// Default: 30s
	Timeout time.Duration

	// MaxBodySize is the maximum HTTP response body size in bytes.
	// This is enforced during response reading, not based on Content-Length header.
	// Default: 1048576 (1MB)
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	// Default: 3
	MaxRedirects int

	// DenyPrivateIPs rejects URLs resolving to private, loopback or link-local
	// addresses, including redirect targets.
	// Default: false (endpoints are operator-configured)
	DenyPrivateIPs bool

	// UserAgent is sent with every request.
	// Default: "SitePulse/1.0"
	UserAgent string

	// BearerToken, when set, is sent as "Authorization: Bearer <token>".
	BearerToken string
}

// DefaultConfig returns the default configuration for the named dependency.
//
// Example:
//
//	cfg := DefaultConfig(circuitbreaker.AnalyticsConfig(), retry.DeliveryConfig())
//	client := New(cfg)
func DefaultConfig(breaker circuitbreaker.Config, retryCfg retry.Config) Config {
	return Config{
		Retry:          retryCfg,
		Breaker:        breaker,
		Timeout:        30 * time.Second,
		MaxBodySize:    1024 * 1024, // 1MB
		MaxRedirects:   3,
		DenyPrivateIPs: false,
		UserAgent:      "SitePulse/1.0",
	}
}

// Validate checks if the configuration values are valid and safe.
//
// Validation rules:
//   - Breaker.Name: non-empty (used as metric label)
//   - Retry.MaxAttempts: 1-10
//   - Timeout: > 0
//   - MaxBodySize: 1KB-100MB
//   - MaxRedirects: 0-10
func (c *Config) Validate() error {
	if c.Breaker.Name == "" {
		return fmt.Errorf("breaker name must not be empty")
	}

	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("retry max attempts must be between 1 and 10, got %d", c.Retry.MaxAttempts)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}

	minBodySize := int64(1024)              // 1KB
	maxBodySize := int64(100 * 1024 * 1024) // 100MB
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}

	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}

	return nil
}
