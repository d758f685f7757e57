package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values; unknown keys are rejected.
//
// Example file:
//
//	delivery_endpoint: https://collect.example.com/v1/events
//	flush_interval: 5s
//	critical_events: [conversion, signup]
func LoadFile(path string, cfg *AgentConfig) error {
	// #nosec G304 -- path comes from the operator (AGENT_CONFIG_FILE), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}
