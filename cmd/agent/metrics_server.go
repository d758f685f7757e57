package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	hhttp "sitepulse/internal/handler/http"
)

// newMetricsServer serves Prometheus metrics on a separate port so the
// public endpoint can be exposed to browsers without leaking them.
//
// Endpoints:
//   - GET /metrics - Prometheus scrape endpoint
//   - GET /health  - liveness probe, always 200
func newMetricsServer(port int) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      metricsMux(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	mux.HandleFunc("GET /health", healthHandler)
	return mux
}

// healthHandler handles GET /health requests (liveness probe).
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
