package http

import (
	"log/slog"
	"net/http"
	"time"

	"sitepulse/internal/handler/http/requestid"
	"sitepulse/internal/observability/tracing"
)

// Batcher is the event batcher as seen by the HTTP layer.
type Batcher interface {
	EventSink
	Flusher
}

// RouterConfig wires handlers to their dependencies.
type RouterConfig struct {
	Batcher     Batcher
	LiveMetrics SnapshotSource // nil disables GET /live-metrics
	LiveMaxAge  time.Duration  // snapshots older than this are flagged stale
	Circuits    []Circuit
	Version     string
	Logger      *slog.Logger
	CORS        CORSConfig // empty AllowedOrigins disables CORS headers

	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ClientRPS      float64
	ClientBurst    int

	// FlushRPS and FlushBurst limit POST /flush per client; each call
	// bypasses batching and spends delivery budget.
	FlushRPS   float64
	FlushBurst int
}

// DefaultRouterConfig returns limits suitable for a public beacon endpoint.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Version:        "dev",
		RequestTimeout: 10 * time.Second,
		MaxBodyBytes:   1 << 20,
		ClientRPS:      20,
		ClientBurst:    40,
		FlushRPS:       0.2,
		FlushBurst:     2,
		LiveMaxAge:     2 * time.Minute,
	}
}

// NewRouter builds the agent's public handler.
//
// Middleware order (outermost first): request ID, tracing, logging,
// panic recovery, metrics, CORS, timeout.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	var trackHandler http.Handler = &TrackHandler{Sink: cfg.Batcher}
	if cfg.MaxBodyBytes > 0 {
		trackHandler = LimitRequestBody(cfg.MaxBodyBytes)(trackHandler)
	}
	if cfg.ClientRPS > 0 {
		trackHandler = NewClientRateLimiter(cfg.ClientRPS, cfg.ClientBurst).Limit(trackHandler)
	}
	mux.Handle("POST /track", trackHandler)
	var flushHandler http.Handler = &FlushHandler{Batcher: cfg.Batcher}
	if cfg.FlushRPS > 0 {
		flushHandler = NewClientRateLimiter(cfg.FlushRPS, cfg.FlushBurst).Limit(flushHandler)
	}
	mux.Handle("POST /flush", flushHandler)
	mux.Handle("GET /stats", &StatsHandler{Batcher: cfg.Batcher})

	if cfg.LiveMetrics != nil {
		mux.Handle("GET /live-metrics", &LiveMetricsHandler{Source: cfg.LiveMetrics, MaxAge: cfg.LiveMaxAge})
	}

	mux.Handle("GET /health", &HealthHandler{
		Batcher:  cfg.Batcher,
		Circuits: cfg.Circuits,
		Version:  cfg.Version,
	})
	mux.Handle("GET /health/circuits", &CircuitsHandler{Circuits: cfg.Circuits})
	mux.Handle("GET /live", &LiveHandler{})

	var handler http.Handler = mux
	if cfg.RequestTimeout > 0 {
		handler = Timeout(cfg.RequestTimeout)(handler)
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		handler = CORS(cfg.CORS)(handler)
	}
	handler = MetricsMiddleware(handler)
	handler = Recover(logger)(handler)
	handler = Logging(logger)(handler)
	handler = tracing.Middleware(handler)
	handler = requestid.Middleware(handler)
	return handler
}
