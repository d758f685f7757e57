package track

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the event pipeline
var (
	// eventsTrackedTotal counts accepted events
	eventsTrackedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_tracked_total",
			Help: "Total number of events accepted into the queue",
		},
		[]string{"critical"},
	)

	// eventsDeliveredTotal counts events confirmed by the endpoint
	eventsDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_delivered_total",
			Help: "Total number of events delivered",
		},
	)

	// eventsDroppedTotal counts events discarded without delivery
	eventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of events dropped without delivery",
		},
		[]string{"reason"}, // reason: overflow|expired|attempts|invalid
	)

	// batchFlushTotal counts flushes that sent a batch
	batchFlushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "batch_flush_total",
			Help: "Total number of batch flushes",
		},
		[]string{"trigger", "status"}, // status: success|failure
	)

	// batchFlushDuration tracks batch send duration
	batchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_flush_duration_seconds",
			Help:    "Batch send duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// batchSize tracks the number of events per batch
	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_size_events",
			Help:    "Number of events per batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 11), // 1 to 1024
		},
	)

	// queueLength reports the current queue length
	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "event_queue_length",
			Help: "Number of events waiting for delivery",
		},
	)
)

func recordTracked(critical bool) {
	label := "false"
	if critical {
		label = "true"
	}
	eventsTrackedTotal.WithLabelValues(label).Inc()
}

func recordDropped(reason string, n int) {
	if n > 0 {
		eventsDroppedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

func recordFlush(trigger string, size int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	} else {
		eventsDeliveredTotal.Add(float64(size))
	}
	batchFlushTotal.WithLabelValues(trigger, status).Inc()
	batchFlushDuration.Observe(duration.Seconds())
	batchSize.Observe(float64(size))
}
