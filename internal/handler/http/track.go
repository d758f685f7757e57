package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sitepulse/internal/domain/entity"
	"sitepulse/internal/handler/http/respond"
	"sitepulse/internal/observability/logging"
	"sitepulse/internal/usecase/track"
)

// maxEventsPerRequest bounds a single POST /track batch.
const maxEventsPerRequest = 500

// EventSink accepts events for delivery.
type EventSink interface {
	Enqueue(ev entity.TrackedEvent) error
}

// eventDTO is one event as sent by a page. Pages cannot mark events
// critical; the batcher's allow-list decides that.
type eventDTO struct {
	ID          string                `json:"id,omitempty"`
	Name        string                `json:"name"`
	Properties  map[string]any        `json:"properties,omitempty"`
	Timestamp   time.Time             `json:"timestamp,omitzero"`
	Session     entity.SessionContext `json:"session"`
	Coordinates *entity.Coordinates   `json:"coordinates,omitempty"`
}

// trackRequest is either a single event or {"events": [...]}.
type trackRequest struct {
	eventDTO
	Events []eventDTO `json:"events"`
}

type rejectedEvent struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type trackResponse struct {
	Accepted int             `json:"accepted"`
	Rejected []rejectedEvent `json:"rejected,omitempty"`
}

// TrackHandler handles POST /track.
type TrackHandler struct {
	Sink EventSink
	Now  func() time.Time
}

// ServeHTTP enqueues the posted events and answers 202 with per-event results.
// Invalid events are reported and skipped; the rest are still accepted.
func (h *TrackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.SafeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
			return
		}
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}

	events := req.Events
	if len(events) == 0 {
		if req.Name == "" && req.Events != nil {
			respond.SafeError(w, http.StatusBadRequest, errors.New("events cannot be empty"))
			return
		}
		events = []eventDTO{req.eventDTO}
	}
	if len(events) > maxEventsPerRequest {
		respond.SafeError(w, http.StatusRequestEntityTooLarge,
			fmt.Errorf("too many events: must be at most %d per request", maxEventsPerRequest))
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	resp := trackResponse{}
	for i, dto := range events {
		err := h.Sink.Enqueue(dto.toEntity(now()))
		if errors.Is(err, track.ErrBatcherClosed) {
			respond.Error(w, http.StatusServiceUnavailable, err)
			return
		}
		if err != nil {
			logging.FromContext(r.Context()).Debug("event rejected",
				slog.Int("index", i),
				slog.String("event", dto.Name),
				slog.Any("error", err))
			resp.Rejected = append(resp.Rejected, rejectedEvent{Index: i, Error: err.Error()})
			continue
		}
		resp.Accepted++
	}

	status := http.StatusAccepted
	if resp.Accepted == 0 {
		status = http.StatusBadRequest
	}
	respond.JSON(w, status, resp)
}

func (d eventDTO) toEntity(now time.Time) entity.TrackedEvent {
	ts := d.Timestamp
	if ts.IsZero() {
		ts = now
	}
	ev := entity.NewTrackedEvent(d.Name, d.Properties, d.Session, d.Coordinates, ts)
	if d.ID != "" {
		ev.ID = d.ID
	}
	return ev
}
