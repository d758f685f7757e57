package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

const (
	// maxNameLength bounds event names so they stay usable as metric labels.
	maxNameLength = 128

	// maxPropertyDepth limits nesting of property values.
	maxPropertyDepth = 8
)

// Validate checks that the event has a usable name and that every property
// value can be encoded as JSON.
func (e TrackedEvent) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if len(e.Name) > maxNameLength {
		return &ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("name must not exceed %d characters", maxNameLength),
		}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp is required"}
	}
	for k, v := range e.Properties {
		if k == "" {
			return &ValidationError{Field: "properties", Message: "property key cannot be empty"}
		}
		if err := validateValue(v, 1); err != nil {
			return &ValidationError{
				Field:   "properties." + k,
				Message: err.Error(),
			}
		}
	}
	return nil
}

// validateValue walks the value shapes produced by encoding/json decoding and
// accepts any other value json.Marshal can encode.
func validateValue(v any, depth int) error {
	if depth > maxPropertyDepth {
		return fmt.Errorf("value nested deeper than %d levels", maxPropertyDepth)
	}

	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	case float32:
		return checkFloat(float64(val))
	case float64:
		return checkFloat(val)
	case []any:
		for i, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		return nil
	case []string:
		return nil
	case map[string]any:
		for k, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		return nil
	default:
		if _, err := json.Marshal(val); err != nil {
			return fmt.Errorf("value of type %T cannot be encoded as JSON: %w", v, err)
		}
		return nil
	}
}

func checkFloat(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v cannot be encoded", f)
	}
	return nil
}
