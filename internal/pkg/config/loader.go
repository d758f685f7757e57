// Package config provides fail-open environment loaders and reusable
// validators. Loaders never return errors: an unparsable or invalid value
// falls back to the default and is reported as a warning.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigLoadResult is the outcome of loading one configuration value.
//
// Example:
//
//	result := LoadEnvDuration("FLUSH_INTERVAL", 10*time.Second, ValidatePositiveDuration)
//	if result.FallbackApplied {
//	    for _, warning := range result.Warnings {
//	        logger.Warn("Configuration fallback applied", slog.String("warning", warning))
//	    }
//	}
//	interval := result.Value.(time.Duration)
type ConfigLoadResult struct {
	Value           interface{}
	Warnings        []string
	FallbackApplied bool
}

func defaultResult(value interface{}) ConfigLoadResult {
	return ConfigLoadResult{Value: value}
}

func fallbackResult(envKey, raw string, reason interface{}, defaultValue interface{}) ConfigLoadResult {
	return ConfigLoadResult{
		Value: defaultValue,
		Warnings: []string{fmt.Sprintf(
			"Invalid %s='%s': %v, falling back to default '%v'",
			envKey, raw, reason, defaultValue,
		)},
		FallbackApplied: true,
	}
}

// LoadEnvString returns the variable's value, or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// LoadEnvWithFallback loads a string and validates it.
// An unset variable yields the default without a warning.
//
// Warning format:
//
//	"Invalid {envKey}='{value}': {error}, falling back to default '{default}'"
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultResult(defaultValue)
	}

	if validator != nil {
		if err := validator(value); err != nil {
			return fallbackResult(envKey, value, err, defaultValue)
		}
	}

	return defaultResult(value)
}

// LoadEnvDuration loads a Go duration string ("30s", "5m", "1h30m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultResult(defaultValue)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fallbackResult(envKey, raw, err, defaultValue)
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallbackResult(envKey, raw, err, defaultValue)
		}
	}

	return defaultResult(parsed)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultResult(defaultValue)
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallbackResult(envKey, raw, "invalid integer format", defaultValue)
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallbackResult(envKey, raw, err, defaultValue)
		}
	}

	return defaultResult(parsed)
}

// LoadEnvFloat loads a floating point number such as a rate limit.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultResult(defaultValue)
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallbackResult(envKey, raw, "invalid number format", defaultValue)
	}

	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallbackResult(envKey, raw, err, defaultValue)
		}
	}

	return defaultResult(parsed)
}

// LoadEnvBool loads a boolean.
// Accepted values: 1, t, T, true, TRUE, True, 0, f, F, false, FALSE, False.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultResult(defaultValue)
	}

	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallbackResult(envKey, raw, "invalid boolean format, expected 'true' or 'false'", defaultValue)
	}

	return defaultResult(parsed)
}

// LoadEnvList loads a comma-separated list, trimming blanks.
// An unset variable or a list with no entries yields defaultValue.
func LoadEnvList(envKey string, defaultValue []string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
