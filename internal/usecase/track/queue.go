package track

import (
	"time"

	"sitepulse/internal/domain/entity"
)

// Drop reasons used in logs and metrics.
const (
	dropOverflow = "overflow"
	dropExpired  = "expired"
	dropAttempts = "attempts"
	dropInvalid  = "invalid"
)

// queued is an event plus the number of failed deliveries it went through.
type queued struct {
	event    entity.TrackedEvent
	attempts int
}

// queue is a bounded FIFO. It is not safe for concurrent use; the batcher
// guards it with its mutex.
type queue struct {
	items []queued
	limit int
}

func newQueue(limit int) *queue {
	return &queue{limit: limit}
}

func (q *queue) len() int {
	return len(q.items)
}

// push appends item and returns whatever had to be evicted to stay within the limit.
func (q *queue) push(item queued) []queued {
	q.items = append(q.items, item)
	return q.trim()
}

// takeAll empties the queue. Events older than maxAge at now are returned
// separately as expired.
func (q *queue) takeAll(now time.Time, maxAge time.Duration) (fresh, expired []queued) {
	items := q.items
	q.items = nil

	fresh = make([]queued, 0, len(items))
	for _, it := range items {
		if maxAge > 0 && it.event.Age(now) > maxAge {
			expired = append(expired, it)
			continue
		}
		fresh = append(fresh, it)
	}
	return fresh, expired
}

// requeueFront puts items back ahead of anything queued since they were taken,
// keeping their relative order.
func (q *queue) requeueFront(items []queued) []queued {
	if len(items) == 0 {
		return nil
	}
	merged := make([]queued, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	q.items = merged
	return q.trim()
}

// trim evicts the oldest non-critical events, then the oldest critical ones,
// until the queue fits its limit.
func (q *queue) trim() []queued {
	var evicted []queued
	for q.limit > 0 && len(q.items) > q.limit {
		idx := 0
		for i, it := range q.items {
			if !it.event.Critical {
				idx = i
				break
			}
		}
		evicted = append(evicted, q.items[idx])
		q.items = append(q.items[:idx], q.items[idx+1:]...)
	}
	return evicted
}

// events returns a copy of the queued events in order.
func (q *queue) events() []entity.TrackedEvent {
	out := make([]entity.TrackedEvent, len(q.items))
	for i, it := range q.items {
		out[i] = it.event
	}
	return out
}
