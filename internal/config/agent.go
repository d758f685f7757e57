// Package config holds the relay agent configuration.
//
// Values are resolved in three layers: DefaultConfig, then an optional YAML
// file named by AGENT_CONFIG_FILE, then environment variables. Environment
// values that fail validation fall back to the layer below with a warning.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pkgconfig "sitepulse/internal/pkg/config"
)

// AgentConfig holds the configuration of the relay agent.
type AgentConfig struct {
	// Port is the public HTTP port (track, flush, live metrics, health).
	// Range: 1024-65535. Default: 8080
	Port int `yaml:"port"`

	// MetricsPort serves /metrics.
	// Range: 1024-65535. Default: 9090
	MetricsPort int `yaml:"metrics_port"`

	// DeliveryEndpoint receives event batches. Empty disables delivery
	// and events are discarded by a no-op sender.
	DeliveryEndpoint string `yaml:"delivery_endpoint"`

	// DeliveryToken is sent as a bearer token when set.
	DeliveryToken string `yaml:"-"`

	// DeliveryRateLimit is the maximum batch requests per second.
	// Range: 0.1-1000. Default: 2
	DeliveryRateLimit float64 `yaml:"delivery_rate_limit"`

	// DeliveryBurst is the rate limiter burst size.
	// Range: 1-1000. Default: 5
	DeliveryBurst int `yaml:"delivery_burst"`

	// FlushInterval is the background flush period.
	// Range: 1s-10m. Default: 10s
	FlushInterval time.Duration `yaml:"flush_interval"`

	// MaxBatchSize triggers an immediate flush.
	// Range: 1-1000. Default: 20
	MaxBatchSize int `yaml:"max_batch_size"`

	// MaxQueueSize bounds the in-memory queue.
	// Range: 1-100000. Default: 1000
	MaxQueueSize int `yaml:"max_queue_size"`

	// MaxEventAge drops events older than this at flush time.
	// Range: 1m-168h. Default: 24h
	MaxEventAge time.Duration `yaml:"max_event_age"`

	// MaxDeliveryAttempts drops events after this many failed flushes.
	// Range: 1-50. Default: 5
	MaxDeliveryAttempts int `yaml:"max_delivery_attempts"`

	// KeepaliveTimeout bounds the final flush on shutdown.
	// Range: 100ms-1m. Default: 5s
	KeepaliveTimeout time.Duration `yaml:"keepalive_timeout"`

	// ShutdownTimeout bounds the whole graceful shutdown.
	// Range: 1s-5m. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// CriticalEvents are flushed as soon as they are tracked.
	CriticalEvents []string `yaml:"critical_events"`

	// LiveMetricsURL is the metrics source. Empty disables the poller.
	LiveMetricsURL string `yaml:"live_metrics_url"`

	// LiveMetricsSchedule is a cron spec or descriptor.
	// Default: "@every 30s"
	LiveMetricsSchedule string `yaml:"live_metrics_schedule"`

	// AllowedOrigins may call the public endpoints from a browser.
	// Entries are exact origins, "*", or "https://*.example.com" patterns.
	// Empty disables CORS headers.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// DenyPrivateIPs rejects delivery and metrics source URLs that resolve
	// to private, loopback or link-local addresses.
	// Default: false
	DenyPrivateIPs bool `yaml:"deny_private_ips"`

	// TraceSampleRatio is the fraction of new traces that are sampled.
	// Range: 0-1. Default: 1
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

// DefaultConfig returns an AgentConfig with default values.
func DefaultConfig() AgentConfig {
	return AgentConfig{
		Port:                8080,
		MetricsPort:         9090,
		DeliveryRateLimit:   2.0,
		DeliveryBurst:       5,
		FlushInterval:       10 * time.Second,
		MaxBatchSize:        20,
		MaxQueueSize:        1000,
		MaxEventAge:         24 * time.Hour,
		MaxDeliveryAttempts: 5,
		KeepaliveTimeout:    5 * time.Second,
		ShutdownTimeout:     30 * time.Second,
		CriticalEvents: []string{
			"conversion", "error", "user_identified",
			"signup", "purchase", "contact_submitted",
		},
		LiveMetricsSchedule: "@every 30s",
		TraceSampleRatio:    1.0,
	}
}

// Validate checks every field and returns all failures joined.
func (c *AgentConfig) Validate() error {
	var errs []error

	if err := pkgconfig.ValidateIntRange(c.Port, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("port: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}
	if c.Port == c.MetricsPort {
		errs = append(errs, fmt.Errorf("port and metrics port must differ, both are %d", c.Port))
	}
	if c.DeliveryEndpoint != "" {
		if err := pkgconfig.ValidateHTTPURL(c.DeliveryEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("delivery endpoint: %w", err))
		}
	}
	if err := pkgconfig.ValidateFloatRange(c.DeliveryRateLimit, 0.1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("delivery rate limit: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.DeliveryBurst, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("delivery burst: %w", err))
	}
	if err := pkgconfig.ValidateDuration(c.FlushInterval, time.Second, 10*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("flush interval: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.MaxBatchSize, 1, 1000); err != nil {
		errs = append(errs, fmt.Errorf("max batch size: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.MaxQueueSize, 1, 100000); err != nil {
		errs = append(errs, fmt.Errorf("max queue size: %w", err))
	}
	if c.MaxQueueSize < c.MaxBatchSize {
		errs = append(errs, fmt.Errorf("max queue size (%d) must not be smaller than max batch size (%d)", c.MaxQueueSize, c.MaxBatchSize))
	}
	if err := pkgconfig.ValidateDuration(c.MaxEventAge, time.Minute, 168*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("max event age: %w", err))
	}
	if err := pkgconfig.ValidateIntRange(c.MaxDeliveryAttempts, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("max delivery attempts: %w", err))
	}
	if err := pkgconfig.ValidateDuration(c.KeepaliveTimeout, 100*time.Millisecond, time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("keepalive timeout: %w", err))
	}
	if err := pkgconfig.ValidateDuration(c.ShutdownTimeout, time.Second, 5*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("shutdown timeout: %w", err))
	}
	if c.LiveMetricsURL != "" {
		if err := pkgconfig.ValidateHTTPURL(c.LiveMetricsURL); err != nil {
			errs = append(errs, fmt.Errorf("live metrics url: %w", err))
		}
	}
	if err := pkgconfig.ValidateCronSchedule(c.LiveMetricsSchedule); err != nil {
		errs = append(errs, fmt.Errorf("live metrics schedule: %w", err))
	}
	for _, origin := range c.AllowedOrigins {
		if err := validateOrigin(origin); err != nil {
			errs = append(errs, fmt.Errorf("allowed origins: %w", err))
		}
	}
	if err := pkgconfig.ValidateFloatRange(c.TraceSampleRatio, 0, 1); err != nil {
		errs = append(errs, fmt.Errorf("trace sample ratio: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// DeliveryEnabled reports whether batches are sent anywhere.
func (c *AgentConfig) DeliveryEnabled() bool {
	return c.DeliveryEndpoint != ""
}

// LiveMetricsEnabled reports whether the live metrics poller should run.
func (c *AgentConfig) LiveMetricsEnabled() bool {
	return c.LiveMetricsURL != ""
}

// LoadConfigFromEnv resolves the agent configuration.
//
// Environment variables:
//   - AGENT_CONFIG_FILE: optional YAML file applied before the variables below
//   - AGENT_PORT, AGENT_METRICS_PORT
//   - DELIVERY_ENDPOINT, DELIVERY_TOKEN, DELIVERY_RATE_LIMIT, DELIVERY_BURST
//   - FLUSH_INTERVAL, MAX_BATCH_SIZE, MAX_QUEUE_SIZE, MAX_EVENT_AGE
//   - MAX_DELIVERY_ATTEMPTS, KEEPALIVE_TIMEOUT, SHUTDOWN_TIMEOUT
//   - CRITICAL_EVENTS (comma-separated)
//   - LIVE_METRICS_URL, LIVE_METRICS_SCHEDULE
//   - CORS_ALLOWED_ORIGINS (comma-separated), DENY_PRIVATE_IPS, TRACE_SAMPLE_RATIO
//
// Invalid variables fall back with a warning and a metric. Only an
// unreadable or invalid config file, or a combination of values that fails
// Validate, is returned as an error.
func LoadConfigFromEnv(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) (*AgentConfig, error) {
	cfg := DefaultConfig()

	if path := pkgconfig.LoadEnvString("AGENT_CONFIG_FILE", ""); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
		logger.Info("configuration file loaded", slog.String("path", path))
	}

	l := &envLoader{logger: logger, metrics: metrics}

	cfg.Port = l.load("port", pkgconfig.LoadEnvInt("AGENT_PORT", cfg.Port, portRange)).(int)
	cfg.MetricsPort = l.load("metrics_port", pkgconfig.LoadEnvInt("AGENT_METRICS_PORT", cfg.MetricsPort, portRange)).(int)

	cfg.DeliveryEndpoint = l.load("delivery_endpoint",
		pkgconfig.LoadEnvWithFallback("DELIVERY_ENDPOINT", cfg.DeliveryEndpoint, pkgconfig.ValidateHTTPURL)).(string)
	cfg.DeliveryToken = pkgconfig.LoadEnvString("DELIVERY_TOKEN", cfg.DeliveryToken)
	cfg.DeliveryRateLimit = l.load("delivery_rate_limit",
		pkgconfig.LoadEnvFloat("DELIVERY_RATE_LIMIT", cfg.DeliveryRateLimit, func(v float64) error {
			return pkgconfig.ValidateFloatRange(v, 0.1, 1000)
		})).(float64)
	cfg.DeliveryBurst = l.load("delivery_burst",
		pkgconfig.LoadEnvInt("DELIVERY_BURST", cfg.DeliveryBurst, intRange(1, 1000))).(int)

	cfg.FlushInterval = l.load("flush_interval",
		pkgconfig.LoadEnvDuration("FLUSH_INTERVAL", cfg.FlushInterval, durationRange(time.Second, 10*time.Minute))).(time.Duration)
	cfg.MaxBatchSize = l.load("max_batch_size",
		pkgconfig.LoadEnvInt("MAX_BATCH_SIZE", cfg.MaxBatchSize, intRange(1, 1000))).(int)
	cfg.MaxQueueSize = l.load("max_queue_size",
		pkgconfig.LoadEnvInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize, intRange(1, 100000))).(int)
	cfg.MaxEventAge = l.load("max_event_age",
		pkgconfig.LoadEnvDuration("MAX_EVENT_AGE", cfg.MaxEventAge, durationRange(time.Minute, 168*time.Hour))).(time.Duration)
	cfg.MaxDeliveryAttempts = l.load("max_delivery_attempts",
		pkgconfig.LoadEnvInt("MAX_DELIVERY_ATTEMPTS", cfg.MaxDeliveryAttempts, intRange(1, 50))).(int)
	cfg.KeepaliveTimeout = l.load("keepalive_timeout",
		pkgconfig.LoadEnvDuration("KEEPALIVE_TIMEOUT", cfg.KeepaliveTimeout, durationRange(100*time.Millisecond, time.Minute))).(time.Duration)
	cfg.ShutdownTimeout = l.load("shutdown_timeout",
		pkgconfig.LoadEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, durationRange(time.Second, 5*time.Minute))).(time.Duration)

	cfg.CriticalEvents = pkgconfig.LoadEnvList("CRITICAL_EVENTS", cfg.CriticalEvents)

	cfg.LiveMetricsURL = l.load("live_metrics_url",
		pkgconfig.LoadEnvWithFallback("LIVE_METRICS_URL", cfg.LiveMetricsURL, pkgconfig.ValidateHTTPURL)).(string)
	cfg.LiveMetricsSchedule = l.load("live_metrics_schedule",
		pkgconfig.LoadEnvWithFallback("LIVE_METRICS_SCHEDULE", cfg.LiveMetricsSchedule, pkgconfig.ValidateCronSchedule)).(string)

	origins := pkgconfig.LoadEnvList("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	if err := validateOrigins(origins); err != nil {
		l.load("allowed_origins", pkgconfig.ConfigLoadResult{
			Value:           cfg.AllowedOrigins,
			Warnings:        []string{fmt.Sprintf("Invalid CORS_ALLOWED_ORIGINS: %v, falling back to default", err)},
			FallbackApplied: true,
		})
	} else {
		cfg.AllowedOrigins = origins
	}
	cfg.DenyPrivateIPs = l.load("deny_private_ips",
		pkgconfig.LoadEnvBool("DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)).(bool)
	cfg.TraceSampleRatio = l.load("trace_sample_ratio",
		pkgconfig.LoadEnvFloat("TRACE_SAMPLE_RATIO", cfg.TraceSampleRatio, func(v float64) error {
			return pkgconfig.ValidateFloatRange(v, 0, 1)
		})).(float64)

	metrics.SetFallbackActive(l.fallbackApplied)
	metrics.RecordLoadTimestamp()

	// Individually valid values can still conflict (batch vs queue size)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envLoader reports fallbacks for each loaded field.
type envLoader struct {
	logger          *slog.Logger
	metrics         *pkgconfig.ConfigMetrics
	fallbackApplied bool
}

func (l *envLoader) load(field string, result pkgconfig.ConfigLoadResult) interface{} {
	if result.FallbackApplied {
		l.fallbackApplied = true
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field, "default")
		for _, warning := range result.Warnings {
			l.logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	return result.Value
}

// validateOrigin accepts "*" or an http(s) origin, optionally with a
// leading "*." host wildcard.
func validateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	if err := pkgconfig.ValidateHTTPURL(origin); err != nil {
		return fmt.Errorf("origin %q: %w", origin, err)
	}
	if strings.Count(origin, "/") != 2 {
		return fmt.Errorf("origin %q must not contain a path", origin)
	}
	return nil
}

func validateOrigins(origins []string) error {
	for _, o := range origins {
		if err := validateOrigin(o); err != nil {
			return err
		}
	}
	return nil
}

func portRange(v int) error {
	return pkgconfig.ValidateIntRange(v, 1024, 65535)
}

func intRange(min, max int) func(int) error {
	return func(v int) error { return pkgconfig.ValidateIntRange(v, min, max) }
}

func durationRange(min, max time.Duration) func(time.Duration) error {
	return func(d time.Duration) error { return pkgconfig.ValidateDuration(d, min, max) }
}
