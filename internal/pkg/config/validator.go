package config

import (
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts five-field expressions and descriptors such as
// "@hourly" or "@every 30s".
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCronSchedule validates a cron expression or descriptor.
//
// Examples of valid schedules:
//   - "*/5 * * * *" (every five minutes)
//   - "@every 30s"
//   - "@hourly"
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}

	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	return nil
}

// ValidateHTTPURL checks that raw is an absolute http or https URL with a host.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q: must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: host is required", raw)
	}
	return nil
}

// ValidateDuration checks that min <= duration <= max.
func ValidateDuration(duration, min, max time.Duration) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%v) cannot be greater than max (%v)", min, max)
	}
	if duration < min {
		return fmt.Errorf("duration %v is below minimum %v", duration, min)
	}
	if duration > max {
		return fmt.Errorf("duration %v exceeds maximum %v", duration, max)
	}
	return nil
}

// ValidateIntRange checks that min <= value <= max.
func ValidateIntRange(value, min, max int) error {
	if min > max {
		return fmt.Errorf("invalid range: min (%d) cannot be greater than max (%d)", min, max)
	}
	if value < min {
		return fmt.Errorf("value %d is below minimum %d", value, min)
	}
	if value > max {
		return fmt.Errorf("value %d exceeds maximum %d", value, max)
	}
	return nil
}

// ValidateFloatRange checks that value is finite and min <= value <= max.
func ValidateFloatRange(value, min, max float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("value %v is not a finite number", value)
	}
	if value < min {
		return fmt.Errorf("value %v is below minimum %v", value, min)
	}
	if value > max {
		return fmt.Errorf("value %v exceeds maximum %v", value, max)
	}
	return nil
}

// ValidatePositiveDuration checks that duration > 0.
func ValidatePositiveDuration(duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", duration)
	}
	return nil
}
