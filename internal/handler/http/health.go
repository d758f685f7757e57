// Package http provides the agent's HTTP surface: event intake, manual
// flushes, live metrics, health checks, and the middleware chain around them.
package http

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"sitepulse/internal/handler/http/respond"
	"sitepulse/internal/usecase/track"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy", "degraded" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // RFC 3339
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Circuit is the read-only view of a circuit breaker used by health checks.
type Circuit interface {
	Name() string
	State() gobreaker.State
	ConsecutiveFailures() uint32
}

// StatsSource reports batcher state.
type StatsSource interface {
	Stats() track.Stats
}

// HealthHandler reports batcher and circuit breaker health.
// An open circuit degrades the agent but keeps it serving; a closed batcher
// makes it unhealthy.
type HealthHandler struct {
	Batcher  StatsSource
	Circuits []Circuit
	Version  string
}

// ServeHTTP returns 200 when healthy or degraded, 503 when unhealthy.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]CheckStatus, 1+len(h.Circuits))
	overall := statusHealthy

	batcher := h.checkBatcher()
	checks["batcher"] = batcher
	if batcher.Status == statusUnhealthy {
		overall = statusUnhealthy
	}

	for _, c := range h.Circuits {
		check := circuitCheck(c)
		checks["circuit:"+c.Name()] = check
		if check.Status == statusDegraded && overall == statusHealthy {
			overall = statusDegraded
		}
	}

	status := http.StatusOK
	if overall == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	respond.JSON(w, status, HealthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) checkBatcher() CheckStatus {
	if h.Batcher == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}
	stats := h.Batcher.Stats()
	check := CheckStatus{
		Status: statusHealthy,
		Details: map[string]any{
			"queued":         stats.Queued,
			"delivered":      stats.Delivered,
			"dropped":        stats.Dropped,
			"failed_flushes": stats.FailedFlushes,
		},
	}
	if stats.Closed {
		check.Status = statusUnhealthy
		check.Message = "batcher is closed"
	}
	return check
}

func circuitCheck(c Circuit) CheckStatus {
	state := c.State()
	check := CheckStatus{
		Status: statusHealthy,
		Details: map[string]any{
			"state":                state.String(),
			"consecutive_failures": c.ConsecutiveFailures(),
		},
	}
	if state == gobreaker.StateOpen {
		check.Status = statusDegraded
		check.Message = "circuit is open"
	}
	return check
}

// CircuitInfo describes one circuit breaker.
type CircuitInfo struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	ConsecutiveFailures uint32 `json:"consecutive_failures"`
}

// CircuitsHandler lists circuit breaker states at GET /health/circuits.
type CircuitsHandler struct {
	Circuits []Circuit
}

func (h *CircuitsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out := make([]CircuitInfo, 0, len(h.Circuits))
	for _, c := range h.Circuits {
		out = append(out, CircuitInfo{
			Name:                c.Name(),
			State:               c.State().String(),
			ConsecutiveFailures: c.ConsecutiveFailures(),
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"circuits": out})
}

// LiveHandler handles liveness probe requests.
// It always returns 200 while the process is serving.
type LiveHandler struct{}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
