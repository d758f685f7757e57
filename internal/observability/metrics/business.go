package metrics

import "time"

// RecordFetchAttempt records the result of a single outbound HTTP attempt.
func RecordFetchAttempt(dependency, result string) {
	FetchAttemptsTotal.WithLabelValues(dependency, result).Inc()
}

// RecordFetchDuration records the time taken by a complete outbound call.
func RecordFetchDuration(dependency string, duration time.Duration) {
	FetchDuration.WithLabelValues(dependency).Observe(duration.Seconds())
}

// RecordFetchFallback records a call that was answered with fallback data.
// Reason should be one of "circuit_open", "exhausted" or "error".
func RecordFetchFallback(dependency, reason string) {
	FetchFallbackTotal.WithLabelValues(dependency, reason).Inc()
}

// RecordLiveMetricsRefresh records a poller refresh.
// When fromCache is false the last-success gauge is moved to now.
func RecordLiveMetricsRefresh(fromCache bool, now time.Time) {
	if fromCache {
		LiveMetricsRefreshTotal.WithLabelValues("cache").Inc()
		return
	}
	LiveMetricsRefreshTotal.WithLabelValues("live").Inc()
	LiveMetricsLastSuccess.Set(float64(now.Unix()))
}
