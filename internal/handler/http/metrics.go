package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sitepulse/internal/observability/metrics"
)

// httpRequestsInFlight tracks requests currently being served.
var httpRequestsInFlight = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Current number of HTTP requests being served",
	},
)

// knownRoutes are recorded by path; anything else is collapsed into
// "other" so scanners cannot blow up label cardinality.
var knownRoutes = map[string]struct{}{
	"/track":           {},
	"/flush":           {},
	"/live-metrics":    {},
	"/health":          {},
	"/health/circuits": {},
	"/stats":           {},
}

func routeLabel(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	return "other"
}

// MetricsMiddleware records request count, duration and size per route.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rec := newStatusRecorder(w)
		start := time.Now()

		next.ServeHTTP(rec, r)

		size := 0
		if r.ContentLength > 0 {
			size = int(r.ContentLength)
		}
		metrics.RecordHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(rec.status), time.Since(start), size)
	})
}

// MetricsHandler serves the Prometheus default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
