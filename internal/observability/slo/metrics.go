// Package slo tracks the delivery objectives of the event pipeline.
package slo

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for event delivery.
const (
	// DeliveryRatioSLO is the target share of accepted events that reach the endpoint (99%)
	DeliveryRatioSLO = 0.99

	// DeliveryLagP95SLO is the target 95th percentile time from Track to confirmed delivery, in seconds
	DeliveryLagP95SLO = 15.0
)

var (
	// SLODeliveryRatio tracks delivered / (delivered + dropped) since process start
	SLODeliveryRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_delivery_ratio",
			Help: "Share of accepted events delivered (0-1), target: 0.99",
		},
	)

	// DeliveryLag measures the age of each event at confirmed delivery
	DeliveryLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "event_delivery_lag_seconds",
			Help:    "Time from event creation to confirmed delivery, target p95: 15s",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 15, 30, 60, 300, 3600},
		},
	)
)

// UpdateDeliveryRatio sets the delivery ratio from cumulative counts.
// With nothing delivered or dropped yet the ratio is 1.
func UpdateDeliveryRatio(delivered, dropped uint64) {
	total := delivered + dropped
	if total == 0 {
		SLODeliveryRatio.Set(1)
		return
	}
	SLODeliveryRatio.Set(float64(delivered) / float64(total))
}

// ObserveDeliveryLag records the age of one delivered event.
func ObserveDeliveryLag(lag time.Duration) {
	if lag < 0 {
		lag = 0
	}
	DeliveryLag.Observe(lag.Seconds())
}
