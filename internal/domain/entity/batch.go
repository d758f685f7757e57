package entity

import (
	"strings"

	"github.com/google/uuid"
)

// batchNamespace seeds the name-based batch IDs.
var batchNamespace = uuid.MustParse("6f1d8a52-3c1e-4c1b-9a57-0d2f6e8b4a10")

// Batch is the unit of delivery: the events sent in one request.
// ID is not serialized; senders pass it out of band for idempotency.
//
// The ID is derived from the event IDs, so re-sending the same events yields
// the same ID. A retried batch that also carries newly tracked events gets a
// new ID; receivers that need exact deduplication should key on each event's
// id.
type Batch struct {
	ID     string         `json:"-"`
	Events []TrackedEvent `json:"events"`
}

// NewBatch wraps events in a batch identified by its event IDs.
// The slice is used as-is; callers must not modify it afterwards.
func NewBatch(events []TrackedEvent) Batch {
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	return Batch{
		ID:     uuid.NewSHA1(batchNamespace, []byte(strings.Join(ids, "\n"))).String(),
		Events: events,
	}
}

// Len returns the number of events in the batch.
func (b Batch) Len() int {
	return len(b.Events)
}
