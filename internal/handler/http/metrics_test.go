package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"sitepulse/internal/observability/metrics"
)

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/track", "/track"},
		{"/health/circuits", "/health/circuits"},
		{"/live-metrics", "/live-metrics"},
		{"/wp-admin/setup.php", "other"},
		{"/track/extra", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, routeLabel(tt.path))
		})
	}
}

func TestMetricsMiddleware(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, 1.0, testutil.ToFloat64(httpRequestsInFlight))
		w.WriteHeader(http.StatusAccepted)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/track", "202")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/track", strings.NewReader(`{"name":"x"}`)))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, 0.0, testutil.ToFloat64(httpRequestsInFlight))
}

func TestMetricsMiddleware_CollapsesUnknownRoutes(t *testing.T) {
	handler := MetricsMiddleware(http.NotFoundHandler())
	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "other", "404")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/scanner/path", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMetricsHandler(t *testing.T) {
	metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200").Inc()

	rr := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}
