package http

import (
	"context"
	"net/http"
	"time"

	"sitepulse/internal/handler/http/respond"
	"sitepulse/internal/usecase/livemetrics"
)

// SnapshotSource provides live metrics snapshots.
type SnapshotSource interface {
	Current() livemetrics.Snapshot
	Refresh(ctx context.Context) livemetrics.Snapshot
}

// LiveMetricsHandler handles GET /live-metrics.
type LiveMetricsHandler struct {
	Source SnapshotSource

	// MaxAge marks snapshots older than this with "X-Data-Stale: true".
	// Zero disables the header.
	MaxAge time.Duration
}

// ServeHTTP returns the current snapshot. "?refresh=true" fetches first;
// the answer is still 200 when that fetch falls back to cached data.
// X-Data-Source tells callers whether the data is live or cached.
func (h *LiveMetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var snap livemetrics.Snapshot
	if r.URL.Query().Get("refresh") == "true" {
		snap = h.Source.Refresh(r.Context())
	} else {
		snap = h.Source.Current()
	}

	source := "live"
	if snap.FromCache {
		source = "cache"
	}
	w.Header().Set("X-Data-Source", source)
	if h.MaxAge > 0 && snap.Stale(time.Now(), h.MaxAge) {
		w.Header().Set("X-Data-Stale", "true")
	}
	w.Header().Set("Cache-Control", "no-store")
	respond.JSON(w, http.StatusOK, snap)
}
