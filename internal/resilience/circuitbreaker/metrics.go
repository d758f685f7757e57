package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	// circuitBreakerState exposes the current state per circuit (0=closed, 1=half-open, 2=open)
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"circuit"},
	)

	// circuitBreakerTransitionsTotal counts state transitions per circuit
	circuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"circuit", "to"},
	)

	// circuitBreakerRejectedTotal counts calls rejected without being attempted
	circuitBreakerRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of calls rejected by an open circuit",
		},
		[]string{"circuit"},
	)
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func recordState(name string, s gobreaker.State) {
	circuitBreakerState.WithLabelValues(name).Set(stateValue(s))
}

func recordStateChange(name string, to gobreaker.State) {
	recordState(name, to)
	circuitBreakerTransitionsTotal.WithLabelValues(name, to.String()).Inc()
}

func recordRejected(name string) {
	circuitBreakerRejectedTotal.WithLabelValues(name).Inc()
}
