package config

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics is a parameterized set of Prometheus metrics describing how a
// component's configuration was loaded: when, which fields failed validation,
// and which fields fell back to a safer value.
//
// Metrics generated (parameterized by component name):
//   - {component}_config_load_timestamp: Unix timestamp of last configuration load
//   - {component}_config_validation_errors_total{field}: validation errors by field
//   - {component}_config_fallbacks_total{field,type}: fallbacks applied by field
//   - {component}_config_fallback_active: 1 if any fallback is active, 0 otherwise
//
// Metrics are registered with the default registry, so each component name
// may only be used once per process.
//
// Example usage:
//
//	// In cmd/agent
//	metrics := config.NewConfigMetrics("agent")
//	result := config.LoadEnvDuration("FLUSH_INTERVAL", 10*time.Second, config.ValidatePositiveDuration)
//	if result.FallbackApplied {
//		metrics.RecordFallback("flush_interval", "default")
//	}
//	metrics.SetFallbackActive(result.FallbackApplied)
//	metrics.RecordLoadTimestamp()
//
// For testing:
//
//	metrics := config.NewConfigMetrics("test_component")
//	metrics.RecordValidationError("flush_interval")
//	// Verify with prometheus/testutil.ToFloat64
type ConfigMetrics struct {
	// LoadTimestamp records the Unix timestamp of the last configuration load.
	// Type: Gauge
	// Labels: none
	LoadTimestamp prometheus.Gauge

	// ValidationErrorsTotal counts configuration validation errors by field.
	// Type: Counter
	// Labels: field (e.g., "delivery_endpoint", "flush_interval")
	ValidationErrorsTotal *prometheus.CounterVec

	// FallbacksTotal counts fallback operations by field and fallback type.
	// Type: Counter
	// Labels: field, type (e.g., "default")
	FallbacksTotal *prometheus.CounterVec

	// FallbackActive indicates whether any fallback is currently active.
	// Type: Gauge
	// Values: 1 (fallback active), 0 (all fields valid)
	FallbackActive prometheus.Gauge

	componentName string
}

// NewConfigMetrics creates a ConfigMetrics whose metric names are prefixed
// with componentName and registers them with the default registry.
//
// Parameters:
//   - componentName: metric prefix, e.g. "agent"
//
// Returns:
//   - *ConfigMetrics: metrics ready to record
//
// Registering the same componentName twice panics, as promauto does for any
// duplicate collector.
func NewConfigMetrics(componentName string) *ConfigMetrics {
	return &ConfigMetrics{
		LoadTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_load_timestamp", componentName),
			Help: fmt.Sprintf("Unix timestamp of last %s configuration load", componentName),
		}),

		ValidationErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_validation_errors_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration validation errors", componentName),
		}, []string{"field"}),

		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_config_fallbacks_total", componentName),
			Help: fmt.Sprintf("Total number of %s configuration fallback operations", componentName),
		}, []string{"field", "type"}),

		FallbackActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_config_fallback_active", componentName),
			Help: fmt.Sprintf("1 if any %s configuration fallback is active, 0 otherwise", componentName),
		}),

		componentName: componentName,
	}
}

// Component returns the name used as the metric prefix.
func (m *ConfigMetrics) Component() string {
	return m.componentName
}

// RecordLoadTimestamp sets the load timestamp to the current time.
// Call it once after every configuration load, successful or not.
func (m *ConfigMetrics) RecordLoadTimestamp() {
	m.LoadTimestamp.SetToCurrentTime()
}

// RecordValidationError increments the validation error counter for field.
//
// Parameters:
//   - field: configuration field name in snake_case (e.g., "live_metrics_schedule")
func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

// RecordFallback increments the fallback counter for field.
//
// Parameters:
//   - field: configuration field name in snake_case
//   - fallbackType: what replaced the rejected value (the agent records "default")
func (m *ConfigMetrics) RecordFallback(field, fallbackType string) {
	m.FallbacksTotal.WithLabelValues(field, fallbackType).Inc()
}

// SetFallbackActive sets the fallback gauge to 1 when any field of the last
// load fell back, and to 0 when every field was accepted as given.
func (m *ConfigMetrics) SetFallbackActive(active bool) {
	if active {
		m.FallbackActive.Set(1)
	} else {
		m.FallbackActive.Set(0)
	}
}
