// Package entity defines the core domain types of the telemetry pipeline.
// It contains TrackedEvent and its session context, along with the
// validation rules that keep event payloads JSON-compatible.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionContext describes the page state at the moment an event was created.
// It is captured by value and never mutated afterwards.
type SessionContext struct {
	Path      string   `json:"path"`
	UserAgent string   `json:"user_agent,omitempty"`
	Viewport  Viewport `json:"viewport"`
	Scroll    Scroll   `json:"scroll"`
}

// Viewport is the visible area of the page in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Scroll is the scroll offset of the page in CSS pixels.
type Scroll struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Coordinates is the pointer position associated with an event.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TrackedEvent is a single telemetry event waiting for delivery.
type TrackedEvent struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Properties  map[string]any `json:"properties,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Session     SessionContext `json:"session"`
	Coordinates *Coordinates   `json:"coordinates,omitempty"`
	Critical    bool           `json:"critical,omitempty"`
}

// NewTrackedEvent builds an event stamped with a fresh ID and the given time.
// Properties are deep-copied and normalized to JSON-decoded shapes, and
// coordinates are copied, so later caller mutations cannot reach the queued
// event.
func NewTrackedEvent(name string, properties map[string]any, session SessionContext, coords *Coordinates, now time.Time) TrackedEvent {
	ev := TrackedEvent{
		ID:        uuid.New().String(),
		Name:      name,
		Timestamp: now,
		Session:   session,
	}
	if len(properties) > 0 {
		ev.Properties = copyProperties(properties)
	}
	if coords != nil {
		c := *coords
		ev.Coordinates = &c
	}
	return ev
}

// Age returns how long ago the event was created relative to now.
func (e TrackedEvent) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}
