package livemetrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"sitepulse/internal/infra/fetcher"
	pkgconfig "sitepulse/internal/pkg/config"
	"sitepulse/internal/resilience/circuitbreaker"
	"sitepulse/internal/resilience/retry"
)

// Config holds the poller configuration.
type Config struct {
	// SourceURL is the metrics endpoint (GET, JSON).
	SourceURL string

	// Schedule is a cron spec or descriptor.
	// Default: "@every 30s"
	Schedule string

	// RefreshTimeout bounds a scheduled refresh.
	// Default: 15s
	RefreshTimeout time.Duration

	// Fetch configures the HTTP client, its retry policy and circuit breaker.
	Fetch fetcher.Config
}

// DefaultConfig returns the default poller configuration for sourceURL.
func DefaultConfig(sourceURL string) Config {
	return Config{
		SourceURL:      sourceURL,
		Schedule:       "@every 30s",
		RefreshTimeout: 15 * time.Second,
		Fetch:          fetcher.DefaultConfig(circuitbreaker.LiveMetricsConfig(), retry.MetricsSourceConfig()),
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return errors.New("source URL is required")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.RefreshTimeout); err != nil {
		return fmt.Errorf("refresh timeout: %w", err)
	}
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}
