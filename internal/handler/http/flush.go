package http

import (
	"context"
	"net/http"

	"sitepulse/internal/handler/http/respond"
	"sitepulse/internal/usecase/track"
)

// Flusher is the batcher surface used by the flush and stats endpoints.
type Flusher interface {
	Flush(ctx context.Context) error
	Stats() track.Stats
}

// FlushHandler handles POST /flush.
type FlushHandler struct {
	Batcher Flusher
}

// ServeHTTP flushes the queue and returns the batcher stats. A failed
// delivery answers 502; the events stay queued.
func (h *FlushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.Batcher.Flush(r.Context()); err != nil {
		respond.JSON(w, http.StatusBadGateway, map[string]any{
			"error": "delivery failed",
			"stats": h.Batcher.Stats(),
		})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"stats": h.Batcher.Stats()})
}

// StatsHandler handles GET /stats.
type StatsHandler struct {
	Batcher Flusher
}

// ServeHTTP returns the batcher stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.Batcher.Stats())
}
